package gradient

import (
	"fmt"
	"math"

	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/voronoi"
)

// FiniteDiffCheck validates the analytic Jacobians around generator i
// by central differencing: it perturbs z_i by ±delta along each axis,
// recomputes the diagram, and compares the observed centroid shifts of
// cell i and of every neighbouring cell against the predicted J·dz.
// It returns the largest absolute component mismatch. A mismatch
// beyond the caller's tolerance is a diagnostic condition, not a
// fatal one.
func FiniteDiffCheck(generators []geom.Vec2, region geom.Polygon, i int, delta float64) (float64, error) {
	if i < 0 || i >= len(generators) {
		return 0, fmt.Errorf("generator index %d out of range", i)
	}
	if delta <= 0 {
		return 0, fmt.Errorf("delta must be positive, got %v", delta)
	}

	base, err := voronoi.Compute(generators, region)
	if err != nil {
		return 0, err
	}
	if base.Cells[i].Empty {
		return 0, fmt.Errorf("cell %d is empty at the base configuration", i)
	}

	// Analytic derivatives with respect to z_i: the self-Jacobian of
	// cell i, and the cross-Jacobian of every neighbouring cell.
	jac := map[int]geom.Mat2{}
	selfJ, _, err := CellJacobians(base.Cells[i], generators, base.Neighbors(i))
	if err != nil {
		return 0, err
	}
	jac[i] = selfJ
	for _, a := range base.Neighbors(i) {
		j := a.Other(i)
		_, cross, err := EdgeJacobians(generators[j], generators[i],
			base.Cells[j].Centroid, base.Cells[j].Mass, a.V1, a.V2)
		if err != nil {
			return 0, err
		}
		jac[j] = cross
	}

	var maxErr float64
	for axis := 0; axis < 2; axis++ {
		plus, err := perturbedCentroids(generators, region, i, axis, delta)
		if err != nil {
			return 0, err
		}
		minus, err := perturbedCentroids(generators, region, i, axis, -delta)
		if err != nil {
			return 0, err
		}
		for k, j := range jac {
			cp, okP := plus[k]
			cm, okM := minus[k]
			if !okP || !okM {
				return 0, fmt.Errorf("cell %d became empty under perturbation", k)
			}
			fdX := (cp.X - cm.X) / (2 * delta)
			fdY := (cp.Y - cm.Y) / (2 * delta)
			maxErr = math.Max(maxErr, math.Abs(fdX-j[0][axis]))
			maxErr = math.Max(maxErr, math.Abs(fdY-j[1][axis]))
		}
	}
	return maxErr, nil
}

// perturbedCentroids recomputes the diagram with z_i shifted by delta
// along the given axis and returns the centroid of every non-empty
// cell.
func perturbedCentroids(generators []geom.Vec2, region geom.Polygon, i, axis int, delta float64) (map[int]geom.Vec2, error) {
	shifted := make([]geom.Vec2, len(generators))
	copy(shifted, generators)
	if axis == 0 {
		shifted[i].X += delta
	} else {
		shifted[i].Y += delta
	}
	d, err := voronoi.Compute(shifted, region)
	if err != nil {
		return nil, err
	}
	out := make(map[int]geom.Vec2, len(d.Cells))
	for k, c := range d.Cells {
		if !c.Empty {
			out[k] = c.Centroid
		}
	}
	return out, nil
}
