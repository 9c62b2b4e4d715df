// Package geom provides the planar primitives used by the coverage
// kernel: vectors, 2x2 matrices, half-plane constraints, and convex
// polygons with boundary-integral mass and centroid.
package geom

import "math"

// Vec2 is a point or vector in the plane.
type Vec2 struct {
	X float64
	Y float64
}

// Add returns v + u.
func (v Vec2) Add(u Vec2) Vec2 { return Vec2{v.X + u.X, v.Y + u.Y} }

// Sub returns v - u.
func (v Vec2) Sub(u Vec2) Vec2 { return Vec2{v.X - u.X, v.Y - u.Y} }

// Scale returns s*v.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{s * v.X, s * v.Y} }

// Dot returns the dot product of v and u.
func (v Vec2) Dot(u Vec2) float64 { return v.X*u.X + v.Y*u.Y }

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between v and u.
func (v Vec2) Dist(u Vec2) float64 { return v.Sub(u).Norm() }

// Mat2 is a 2x2 matrix stored row-major, in the same plain-array style
// as a covariance block: m[row][col].
type Mat2 [2][2]float64

// Identity2 returns the 2x2 identity matrix.
func Identity2() Mat2 { return Mat2{{1, 0}, {0, 1}} }

// MulVec returns m*v.
func (m Mat2) MulVec(v Vec2) Vec2 {
	return Vec2{
		X: m[0][0]*v.X + m[0][1]*v.Y,
		Y: m[1][0]*v.X + m[1][1]*v.Y,
	}
}

// T returns the transpose of m.
func (m Mat2) T() Mat2 {
	return Mat2{{m[0][0], m[1][0]}, {m[0][1], m[1][1]}}
}

// Add returns m + n.
func (m Mat2) Add(n Mat2) Mat2 {
	return Mat2{
		{m[0][0] + n[0][0], m[0][1] + n[0][1]},
		{m[1][0] + n[1][0], m[1][1] + n[1][1]},
	}
}

// Sub returns m - n.
func (m Mat2) Sub(n Mat2) Mat2 {
	return Mat2{
		{m[0][0] - n[0][0], m[0][1] - n[0][1]},
		{m[1][0] - n[1][0], m[1][1] - n[1][1]},
	}
}

// Scale returns s*m.
func (m Mat2) Scale(s float64) Mat2 {
	return Mat2{
		{s * m[0][0], s * m[0][1]},
		{s * m[1][0], s * m[1][1]},
	}
}

// QuadForm returns vᵀ m v.
func (m Mat2) QuadForm(v Vec2) float64 {
	return v.Dot(m.MulVec(v))
}
