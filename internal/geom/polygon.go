package geom

import (
	"fmt"
	"math"
)

// clipEpsilon is the margin slack used when classifying a vertex
// against a half-plane during clipping. Vertices this close to the
// boundary count as inside so that shared Voronoi edges survive the
// clip on both sides.
const clipEpsilon = 1e-9

// HalfPlane is the linear constraint A·z <= B. The feasible region of
// a convex polygon is the intersection of one half-plane per edge.
type HalfPlane struct {
	A Vec2
	B float64
}

// Margin returns B - A·z: positive strictly inside, zero on the
// boundary, negative outside.
func (h HalfPlane) Margin(z Vec2) float64 { return h.B - h.A.Dot(z) }

// Contains reports whether z satisfies the constraint, with a small
// slack for points on the boundary.
func (h HalfPlane) Contains(z Vec2) bool { return h.Margin(z) >= -clipEpsilon }

// HalfPlanesFromCoeffs converts rows of [a_x, a_y, b] coefficients
// (the constraint a·z <= b) into half-planes. Rows are used as given;
// normals are not re-normalised, so margins stay in the caller's units.
func HalfPlanesFromCoeffs(rows [][3]float64) ([]HalfPlane, error) {
	if len(rows) < 3 {
		return nil, fmt.Errorf("need at least 3 boundary coefficient rows, got %d", len(rows))
	}
	hps := make([]HalfPlane, len(rows))
	for i, r := range rows {
		a := Vec2{r[0], r[1]}
		if a.Norm() == 0 {
			return nil, fmt.Errorf("boundary row %d has zero normal", i)
		}
		hps[i] = HalfPlane{A: a, B: r[2]}
	}
	return hps, nil
}

// Polygon is an ordered list of vertices, counter-clockwise winding.
type Polygon []Vec2

// Area returns the polygon area from the shoelace line integral over
// its boundary edges. Degenerate polygons (fewer than 3 vertices)
// have zero area.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Centroid returns the polygon centroid from the same boundary
// parametrisation as Area (Green's theorem, no area sampling), along
// with the area. A degenerate polygon returns a zero centroid and
// zero area; callers treat that as an empty cell.
func (p Polygon) Centroid() (Vec2, float64) {
	area := p.Area()
	if area == 0 {
		return Vec2{}, 0
	}
	var cx, cy float64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		cross := a.X*b.Y - b.X*a.Y
		cx += (a.X + b.X) * cross
		cy += (a.Y + b.Y) * cross
	}
	return Vec2{cx / (6 * area), cy / (6 * area)}, area
}

// Clip returns the part of p inside the half-plane h, the single-plane
// step of Sutherland–Hodgman clipping. The result keeps the winding
// order of p and may be empty.
func (p Polygon) Clip(h HalfPlane) Polygon {
	if len(p) == 0 {
		return nil
	}
	out := make(Polygon, 0, len(p)+1)
	for i := range p {
		cur, next := p[i], p[(i+1)%len(p)]
		curIn, nextIn := h.Contains(cur), h.Contains(next)
		if curIn {
			out = append(out, cur)
		}
		if curIn != nextIn {
			out = append(out, intersect(cur, next, h))
		}
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// intersect returns the point where segment [a,b] crosses the
// boundary line of h. Callers guarantee the segment straddles it.
func intersect(a, b Vec2, h HalfPlane) Vec2 {
	ma, mb := h.Margin(a), h.Margin(b)
	t := ma / (ma - mb)
	return a.Add(b.Sub(a).Scale(t))
}

// Contains reports whether z lies inside the polygon, assuming convex
// CCW winding.
func (p Polygon) Contains(z Vec2) bool {
	if len(p) < 3 {
		return false
	}
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		e := b.Sub(a)
		if e.X*(z.Y-a.Y)-e.Y*(z.X-a.X) < -clipEpsilon {
			return false
		}
	}
	return true
}

// HalfPlanes returns one unit-normal half-plane per edge of a convex
// CCW polygon. Unit normals make the margin of each constraint the
// Euclidean distance to that edge, which keeps barrier terms in
// consistent units.
func (p Polygon) HalfPlanes() ([]HalfPlane, error) {
	if len(p) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(p))
	}
	if p.Area() <= 0 {
		return nil, fmt.Errorf("polygon must have positive area and CCW winding")
	}
	hps := make([]HalfPlane, len(p))
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		e := b.Sub(a)
		n := Vec2{e.Y, -e.X} // outward for CCW winding
		l := n.Norm()
		if l == 0 {
			return nil, fmt.Errorf("polygon edge %d has zero length", i)
		}
		n = n.Scale(1 / l)
		hps[i] = HalfPlane{A: n, B: n.Dot(a)}
	}
	return hps, nil
}

// PolygonFromHalfPlanes intersects the half-planes into a convex
// polygon by clipping a bounding square large enough to contain the
// feasible set. The bound is the max absolute coordinate the region
// can reach; it must be finite and positive.
func PolygonFromHalfPlanes(hps []HalfPlane, bound float64) (Polygon, error) {
	if len(hps) < 3 {
		return nil, fmt.Errorf("need at least 3 half-planes, got %d", len(hps))
	}
	if bound <= 0 || math.IsInf(bound, 0) || math.IsNaN(bound) {
		return nil, fmt.Errorf("invalid bounding extent %v", bound)
	}
	poly := Polygon{
		{-bound, -bound}, {bound, -bound}, {bound, bound}, {-bound, bound},
	}
	for _, h := range hps {
		poly = poly.Clip(h)
		if poly == nil {
			return nil, fmt.Errorf("half-planes have empty intersection")
		}
	}
	return poly, nil
}
