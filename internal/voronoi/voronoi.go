// Package voronoi computes bounded Voronoi diagrams for generator
// points inside a convex planar region, together with per-cell mass,
// centroid, and the shared-edge adjacency between neighbouring cells.
//
// Cells are built in half-plane intersection form: each generator's
// cell is the region polygon clipped by the perpendicular-bisector
// half-plane against every other generator. Cells carry no identity
// across rounds; the diagram is a fresh value every time.
package voronoi

import (
	"fmt"

	"github.com/banshee-data/coverage.control/internal/geom"
)

// edgeEpsilon is the relative tolerance used when deciding whether a
// cell edge lies on the bisector of two generators and when rejecting
// zero-length shared edges.
const edgeEpsilon = 1e-7

// Cell is one generator's bounded Voronoi cell. An Empty cell means
// the generator produced no feasible polygon this round (outside the
// region, or coincident with another generator); callers skip its
// centroid and derivative computation rather than failing.
type Cell struct {
	Generator int
	Polygon   geom.Polygon
	Mass      float64
	Centroid  geom.Vec2
	Empty     bool
}

// Adjacency records that cells I and J share a Voronoi edge with
// endpoints V1 and V2. The pair is unordered (I < J) and valid only
// for the diagram that produced it.
type Adjacency struct {
	I  int
	J  int
	V1 geom.Vec2
	V2 geom.Vec2
}

// Other returns the member of the pair that is not id.
func (a Adjacency) Other(id int) int {
	if a.I == id {
		return a.J
	}
	return a.I
}

// Diagram is the bounded Voronoi diagram of one round's generators.
type Diagram struct {
	Cells       []Cell
	Adjacencies []Adjacency
}

// Bisector returns the half-plane of points at least as close to zi
// as to zj: 2(zj-zi)·z <= |zj|² - |zi|².
func Bisector(zi, zj geom.Vec2) geom.HalfPlane {
	return geom.HalfPlane{
		A: zj.Sub(zi),
		B: (zj.Dot(zj) - zi.Dot(zi)) / 2,
	}
}

// Compute builds the bounded Voronoi diagram of the generators inside
// the convex region. It errors on fewer than one generator or a
// degenerate region; individual empty cells are not errors.
func Compute(generators []geom.Vec2, region geom.Polygon) (*Diagram, error) {
	if len(generators) == 0 {
		return nil, fmt.Errorf("no generators")
	}
	if len(region) < 3 || region.Area() <= 0 {
		return nil, fmt.Errorf("region must be a convex polygon with positive area")
	}

	d := &Diagram{Cells: make([]Cell, len(generators))}
	for i, zi := range generators {
		cell := Cell{Generator: i}
		poly := region
		for j, zj := range generators {
			if j == i {
				continue
			}
			if zi == zj {
				// Coincident generators have no well-defined bisector.
				poly = nil
				break
			}
			poly = poly.Clip(Bisector(zi, zj))
			if poly == nil {
				break
			}
		}
		if poly == nil {
			cell.Empty = true
		} else {
			cell.Polygon = poly
			cell.Centroid, cell.Mass = poly.Centroid()
			if cell.Mass == 0 {
				cell.Empty = true
				cell.Polygon = nil
			}
		}
		d.Cells[i] = cell
	}

	d.Adjacencies = adjacencies(generators, d.Cells)
	return d, nil
}

// Neighbors returns the adjacencies involving cell id, in diagram
// order.
func (d *Diagram) Neighbors(id int) []Adjacency {
	var out []Adjacency
	for _, a := range d.Adjacencies {
		if a.I == id || a.J == id {
			out = append(out, a)
		}
	}
	return out
}

// adjacencies extracts each shared edge by scanning the edges of cell
// i for segments equidistant to generators i and j. Pairs touching an
// empty cell are dropped: an empty generator takes no part in the
// round's coupling.
func adjacencies(generators []geom.Vec2, cells []Cell) []Adjacency {
	var out []Adjacency
	for i := range cells {
		if cells[i].Empty {
			continue
		}
		poly := cells[i].Polygon
		for j := i + 1; j < len(cells); j++ {
			if cells[j].Empty {
				continue
			}
			v1, v2, ok := sharedEdge(poly, generators[i], generators[j])
			if ok {
				out = append(out, Adjacency{I: i, J: j, V1: v1, V2: v2})
			}
		}
	}
	return out
}

// sharedEdge finds the edge of poly whose endpoints are equidistant
// to zi and zj, if any. Edges shorter than the tolerance are ignored:
// a bisector that only grazes a cell corner is not an adjacency.
func sharedEdge(poly geom.Polygon, zi, zj geom.Vec2) (geom.Vec2, geom.Vec2, bool) {
	scale := zi.Dist(zj)
	if scale == 0 {
		return geom.Vec2{}, geom.Vec2{}, false
	}
	tol := edgeEpsilon * (1 + scale)
	for k := range poly {
		a, b := poly[k], poly[(k+1)%len(poly)]
		if a.Dist(b) <= tol {
			continue
		}
		if onBisector(a, zi, zj, tol) && onBisector(b, zi, zj, tol) {
			return a, b, true
		}
	}
	return geom.Vec2{}, geom.Vec2{}, false
}

func onBisector(p, zi, zj geom.Vec2, tol float64) bool {
	di, dj := p.Dist(zi), p.Dist(zj)
	return di-dj < tol && dj-di < tol
}
