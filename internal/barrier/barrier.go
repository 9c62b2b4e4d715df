// Package barrier implements the barrier-Lyapunov control law that
// drives an agent toward its Voronoi cell centroid while repelling it
// from the coverage region's boundary.
//
// The potential is the centroid-tracking error weighted by a positive
// definite matrix Q and scaled by the sum of reciprocal boundary
// margins, so it grows without bound as the agent approaches any edge
// of the feasible region. Gradient contributions from neighbours (how
// this agent's motion perturbs their centroids) are aggregated into
// the same descent direction, which is then projected onto the
// unicycle's heading and saturated into a bounded angular-velocity
// command.
package barrier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/gradient"
)

// ErrInfeasible is returned when a boundary margin h_j = b_j - a_j·z
// is non-positive: the agent is on or past the boundary, so the
// control law's own precondition has already failed. This is a logic
// error; callers must not continue the agent's round.
var ErrInfeasible = errors.New("barrier: boundary constraint violated")

// Params are the control-law parameters, fixed for a run.
type Params struct {
	Q   geom.Mat2 // positive definite tracking weight
	P   float64   // saturation gain: w stays in w0·(1±P)
	Eps float64   // sigmoid softening constant, > 0
}

// NewParams validates the control parameters. Q must be symmetric
// positive definite (checked by Cholesky factorisation) and Eps
// strictly positive.
func NewParams(q geom.Mat2, p, eps float64) (Params, error) {
	if q[0][1] != q[1][0] {
		return Params{}, fmt.Errorf("Q must be symmetric, got %v", q)
	}
	sym := mat.NewSymDense(2, []float64{q[0][0], q[0][1], q[0][1], q[1][1]})
	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return Params{}, fmt.Errorf("Q must be positive definite, got %v", q)
	}
	if eps <= 0 {
		return Params{}, fmt.Errorf("eps must be positive, got %v", eps)
	}
	if p <= 0 {
		return Params{}, fmt.Errorf("gain P must be positive, got %v", p)
	}
	return Params{Q: q, P: p, Eps: eps}, nil
}

// State is an agent's barrier-Lyapunov state for one round: the
// potential V (never negative while the agent is feasible) and its
// gradient with respect to the agent's own virtual center.
type State struct {
	V    float64
	Grad geom.Vec2
}

// Margins returns h_j = b_j - a_j·z for every boundary constraint,
// plus the reused sums Σ 1/h_j and Σ a_j/(2 h_j²). Any non-positive
// margin yields ErrInfeasible.
func Margins(z geom.Vec2, bounds []geom.HalfPlane) (sumInv float64, sumRepel geom.Vec2, err error) {
	if len(bounds) == 0 {
		return 0, geom.Vec2{}, fmt.Errorf("no boundary constraints")
	}
	for j, h := range bounds {
		m := h.Margin(z)
		if m <= 0 {
			return 0, geom.Vec2{}, fmt.Errorf("%w: margin %d is %v at z=%v", ErrInfeasible, j, m, z)
		}
		sumInv += 1 / m
		sumRepel = sumRepel.Add(h.A.Scale(1 / (2 * m * m)))
	}
	return sumInv, sumRepel, nil
}

// Evaluate computes the agent's own potential and self-gradient:
//
//	V     = (z-C)ᵀ Q (z-C) · Σ 1/h_j / 2
//	dV/dz = (I - (dC/dz)ᵀ)·Q·(z-C)·Σ 1/h_j + (z-C)ᵀQ(z-C)·Σ a_j/(2h_j²)
//
// where dCdz is the aggregate self-Jacobian of the agent's cell. A
// non-positive margin is fatal; V is non-negative by construction and
// zero exactly when z equals the centroid.
func Evaluate(z, centroid geom.Vec2, dCdz geom.Mat2, bounds []geom.HalfPlane, p Params) (State, error) {
	sumInv, sumRepel, err := Margins(z, bounds)
	if err != nil {
		return State{}, err
	}
	diff := z.Sub(centroid)
	quad := p.Q.QuadForm(diff)
	v := quad * sumInv / 2
	if v < 0 {
		// Cannot happen with a PD Q and positive margins; a negative
		// value means the state constraint was already violated.
		return State{}, fmt.Errorf("%w: potential %v is negative at z=%v", ErrInfeasible, v, z)
	}

	tracking := geom.Identity2().Sub(dCdz.T()).MulVec(p.Q.MulVec(diff)).Scale(sumInv)
	repulsion := sumRepel.Scale(quad)
	return State{V: v, Grad: tracking.Add(repulsion)}, nil
}

// NeighborTerm computes one received report's contribution to the
// total Lyapunov gradient: how this agent's motion perturbs the
// sender's centroid and therefore the sender's potential,
//
//	-(dC_s/dz)ᵀ · Q · (z_s - C_s) · Σ 1/h_j(z_s)
//
// with the margin sum evaluated at the sender's reported center (the
// term is part of the sender's potential gradient). Summed over all
// reports, these terms make the distributed gradients add up to the
// system-wide Lyapunov gradient without global knowledge.
func NeighborTerm(r gradient.Report, bounds []geom.HalfPlane, p Params) (geom.Vec2, error) {
	sumInv, _, err := Margins(r.Center, bounds)
	if err != nil {
		return geom.Vec2{}, fmt.Errorf("sender %d: %w", r.Sender, err)
	}
	qd := p.Q.MulVec(r.Center.Sub(r.Centroid)).Scale(sumInv)
	return r.DCdz.T().MulVec(qd).Scale(-1), nil
}

// Sigmoid is the sign-preserving saturation x/(|x|+eps), bounded in
// (-1, 1).
func Sigmoid(x, eps float64) float64 {
	return x / (math.Abs(x) + eps)
}

// ControlInput turns the total gradient into a bounded angular
// velocity: w = w0 + P·w0·sigmoid(g·[cosθ sinθ], eps). The dot
// product projects the gradient onto the direction the unicycle can
// turn toward; the result stays within w0·(1±P).
func ControlInput(w0, theta float64, grad geom.Vec2, p Params) float64 {
	proj := grad.X*math.Cos(theta) + grad.Y*math.Sin(theta)
	return w0 + p.P*w0*Sigmoid(proj, p.Eps)
}
