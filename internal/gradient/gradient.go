// Package gradient computes how a Voronoi cell's centroid moves as
// its own generator and each adjacent generator move.
//
// The shared edge between cells i and j is the perpendicular bisector
// of the two generators, so moving either generator moves every point
// q(t) on the edge. Differentiating the boundary integral that defines
// the centroid (Leibniz rule on a moving boundary) gives, for each
// scalar derivative, two line integrals along the edge: a first-moment
// term integrating q(t) against the boundary velocity, and a mass
// correction subtracting the known centroid scaled by the same
// velocity integral. The integrands are polynomial in the edge
// parameter t, so fixed-order Gauss-Legendre quadrature evaluates them
// to round-off.
package gradient

import (
	"fmt"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/voronoi"
)

// quadNodes is the Gauss-Legendre order used for the edge integrals.
// The integrands are at most quadratic in t; five nodes are exact for
// polynomials up to degree nine.
const quadNodes = 5

// Report is the message one agent uploads for each Voronoi neighbour:
// the sender's virtual center and centroid plus the Jacobian of the
// sender's centroid with respect to the receiver's position. One
// stable schema; consumed exactly once, in the round it was produced.
type Report struct {
	Sender   int
	Receiver int
	Center   geom.Vec2
	Centroid geom.Vec2
	DCdz     geom.Mat2
}

// EdgeJacobians returns the contribution of one shared edge [v1,v2] to
// the Jacobians of cell i's centroid: dSelf is the per-edge term of
// dC_i/dz_i and dCross is dC_i/dz_j for the neighbour j across the
// edge. Rows index the centroid component, columns the position
// component, so a predicted centroid shift is J·dz.
func EdgeJacobians(zi, zj, centroid geom.Vec2, mass float64, v1, v2 geom.Vec2) (dSelf, dCross geom.Mat2, err error) {
	dist := zi.Dist(zj)
	if dist == 0 {
		return geom.Mat2{}, geom.Mat2{}, fmt.Errorf("coincident generators have no bisector")
	}
	if mass <= 0 {
		return geom.Mat2{}, geom.Mat2{}, fmt.Errorf("cell mass must be positive, got %v", mass)
	}

	// Edge parametrisation q(t) = v1 + (v2-v1)·t, t in [0,1], with
	// arc-length factor |v2-v1| folded into every integrand.
	dir := v2.Sub(v1)
	arc := dir.Norm()
	qx := func(t float64) float64 { return v1.X + dir.X*t }
	qy := func(t float64) float64 { return v1.Y + dir.Y*t }

	// Boundary velocities: the projection of q-z_i (resp. z_j-q) onto
	// the edge direction, divided by the generator distance.
	wSelfX := func(t float64) float64 { return (qx(t) - zi.X) / dist }
	wSelfY := func(t float64) float64 { return (qy(t) - zi.Y) / dist }
	wCrossX := func(t float64) float64 { return (zj.X - qx(t)) / dist }
	wCrossY := func(t float64) float64 { return (zj.Y - qy(t)) / dist }

	column := func(w func(float64) float64) (dCx, dCy float64) {
		massCorr := quad.Fixed(func(t float64) float64 { return w(t) * arc }, 0, 1, quadNodes, nil, 0)
		firstX := quad.Fixed(func(t float64) float64 { return qx(t) * w(t) * arc }, 0, 1, quadNodes, nil, 0)
		firstY := quad.Fixed(func(t float64) float64 { return qy(t) * w(t) * arc }, 0, 1, quadNodes, nil, 0)
		dCx = (firstX - massCorr*centroid.X) / mass
		dCy = (firstY - massCorr*centroid.Y) / mass
		return dCx, dCy
	}

	dSelf[0][0], dSelf[1][0] = column(wSelfX)
	dSelf[0][1], dSelf[1][1] = column(wSelfY)
	dCross[0][0], dCross[1][0] = column(wCrossX)
	dCross[0][1], dCross[1][1] = column(wCrossY)
	return dSelf, dCross, nil
}

// CellJacobians computes cell i's aggregate self-Jacobian (the sum of
// per-edge dC_i/dz_i contributions over all neighbours) and one Report
// per neighbour carrying the cross term dC_i/dz_j. The cell must be
// non-empty; adjs are the diagram adjacencies involving the cell.
func CellJacobians(cell voronoi.Cell, generators []geom.Vec2, adjs []voronoi.Adjacency) (geom.Mat2, []Report, error) {
	if cell.Empty {
		return geom.Mat2{}, nil, fmt.Errorf("cell %d is empty", cell.Generator)
	}
	i := cell.Generator
	zi := generators[i]
	var self geom.Mat2
	reports := make([]Report, 0, len(adjs))
	for _, a := range adjs {
		j := a.Other(i)
		dSelf, dCross, err := EdgeJacobians(zi, generators[j], cell.Centroid, cell.Mass, a.V1, a.V2)
		if err != nil {
			return geom.Mat2{}, nil, fmt.Errorf("edge (%d,%d): %w", i, j, err)
		}
		self = self.Add(dSelf)
		reports = append(reports, Report{
			Sender:   i,
			Receiver: j,
			Center:   zi,
			Centroid: cell.Centroid,
			DCdz:     dCross,
		})
	}
	return self, reports, nil
}
