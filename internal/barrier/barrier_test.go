package barrier

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/gradient"
)

func testParams(t *testing.T) Params {
	t.Helper()
	p, err := NewParams(geom.Identity2().Scale(5), 3, 5)
	require.NoError(t, err)
	return p
}

func squareBounds(t *testing.T) []geom.HalfPlane {
	t.Helper()
	poly := geom.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	hps, err := poly.HalfPlanes()
	require.NoError(t, err)
	return hps
}

func TestNewParams(t *testing.T) {
	t.Run("accepts positive definite Q", func(t *testing.T) {
		p, err := NewParams(geom.Mat2{{2, 1}, {1, 2}}, 3, 5)
		require.NoError(t, err)
		assert.Equal(t, 3.0, p.P)
	})

	t.Run("rejects asymmetric Q", func(t *testing.T) {
		_, err := NewParams(geom.Mat2{{1, 2}, {0, 1}}, 3, 5)
		assert.Error(t, err)
	})

	t.Run("rejects indefinite Q", func(t *testing.T) {
		_, err := NewParams(geom.Mat2{{1, 0}, {0, -1}}, 3, 5)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive eps and gain", func(t *testing.T) {
		_, err := NewParams(geom.Identity2(), 3, 0)
		assert.Error(t, err)
		_, err = NewParams(geom.Identity2(), 0, 5)
		assert.Error(t, err)
	})
}

func TestMargins(t *testing.T) {
	bounds := squareBounds(t)

	t.Run("interior point has positive sums", func(t *testing.T) {
		sumInv, sumRepel, err := Margins(geom.Vec2{X: 5, Y: 5}, bounds)
		require.NoError(t, err)
		// All four margins are 5.
		assert.InDelta(t, 4.0/5, sumInv, 1e-12)
		// Opposite edge normals cancel at the center.
		assert.InDelta(t, 0, sumRepel.X, 1e-12)
		assert.InDelta(t, 0, sumRepel.Y, 1e-12)
	})

	t.Run("boundary point is infeasible", func(t *testing.T) {
		_, _, err := Margins(geom.Vec2{X: 0, Y: 5}, bounds)
		assert.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("exterior point is infeasible", func(t *testing.T) {
		_, _, err := Margins(geom.Vec2{X: -1, Y: 5}, bounds)
		assert.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("no constraints is an error", func(t *testing.T) {
		_, _, err := Margins(geom.Vec2{X: 5, Y: 5}, nil)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrInfeasible))
	})
}

func TestEvaluatePotential(t *testing.T) {
	params := testParams(t)
	bounds := squareBounds(t)

	t.Run("V is zero exactly at the centroid", func(t *testing.T) {
		z := geom.Vec2{X: 5, Y: 5}
		st, err := Evaluate(z, z, geom.Mat2{}, bounds, params)
		require.NoError(t, err)
		assert.Zero(t, st.V)
		assert.Zero(t, st.Grad.Norm())
	})

	t.Run("V is positive away from the centroid", func(t *testing.T) {
		for _, z := range []geom.Vec2{
			{X: 1, Y: 1}, {X: 9.9, Y: 5}, {X: 3, Y: 8}, {X: 0.01, Y: 0.01},
		} {
			st, err := Evaluate(z, geom.Vec2{X: 5, Y: 5}, geom.Mat2{}, bounds, params)
			require.NoError(t, err, "z=%v", z)
			assert.Positive(t, st.V, "z=%v", z)
		}
	})

	t.Run("closed form at a known point", func(t *testing.T) {
		// z=(2,5), C=(5,5): margins 2, 8, 5, 5; Q = 5I.
		z := geom.Vec2{X: 2, Y: 5}
		c := geom.Vec2{X: 5, Y: 5}
		st, err := Evaluate(z, c, geom.Mat2{}, bounds, params)
		require.NoError(t, err)
		sumInv := 1.0/2 + 1.0/8 + 1.0/5 + 1.0/5
		wantV := 5 * 9 * sumInv / 2
		assert.InDelta(t, wantV, st.V, 1e-12)

		// Gradient x-component: tracking 5·(-3)·sumInv plus repulsion
		// 45·(1/(2·64) - 1/(2·4)) from the two x-facing edges.
		wantGx := 5*(-3)*sumInv + 45*(1.0/128-1.0/8)
		assert.InDelta(t, wantGx, st.Grad.X, 1e-12)
		assert.InDelta(t, 0, st.Grad.Y, 1e-12)
	})

	t.Run("infeasible point is fatal", func(t *testing.T) {
		_, err := Evaluate(geom.Vec2{X: 11, Y: 5}, geom.Vec2{X: 5, Y: 5}, geom.Mat2{}, bounds, params)
		assert.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("barrier grows near the boundary", func(t *testing.T) {
		c := geom.Vec2{X: 5, Y: 5}
		far, err := Evaluate(geom.Vec2{X: 2, Y: 5}, c, geom.Mat2{}, bounds, params)
		require.NoError(t, err)
		near, err := Evaluate(geom.Vec2{X: 0.05, Y: 5}, c, geom.Mat2{}, bounds, params)
		require.NoError(t, err)
		assert.Greater(t, near.V, far.V)
		// Repulsion dominates: the gradient points away from the near
		// edge (x=0), i.e. negative x descent direction.
		assert.Less(t, near.Grad.X, 0.0)
	})
}

func TestNeighborTerm(t *testing.T) {
	params := testParams(t)
	bounds := squareBounds(t)

	t.Run("uses the sender's margins", func(t *testing.T) {
		r := gradient.Report{
			Sender:   1,
			Receiver: 0,
			Center:   geom.Vec2{X: 2, Y: 5},
			Centroid: geom.Vec2{X: 4, Y: 5},
			DCdz:     geom.Mat2{{0.5, 0}, {0, 0.5}},
		}
		term, err := NeighborTerm(r, bounds, params)
		require.NoError(t, err)
		sumInv := 1.0/2 + 1.0/8 + 1.0/5 + 1.0/5
		// -(0.5·I)ᵀ · 5I · (-2, 0) · sumInv
		assert.InDelta(t, 0.5*5*2*sumInv, term.X, 1e-12)
		assert.InDelta(t, 0, term.Y, 1e-12)
	})

	t.Run("sender at its centroid contributes nothing", func(t *testing.T) {
		r := gradient.Report{
			Center:   geom.Vec2{X: 4, Y: 4},
			Centroid: geom.Vec2{X: 4, Y: 4},
			DCdz:     geom.Mat2{{1, 0}, {0, 1}},
		}
		term, err := NeighborTerm(r, bounds, params)
		require.NoError(t, err)
		assert.Zero(t, term.Norm())
	})

	t.Run("infeasible sender center is fatal", func(t *testing.T) {
		r := gradient.Report{Center: geom.Vec2{X: -1, Y: 5}}
		_, err := NeighborTerm(r, bounds, params)
		assert.ErrorIs(t, err, ErrInfeasible)
	})
}

func TestSigmoid(t *testing.T) {
	assert.Zero(t, Sigmoid(0, 5))
	assert.InDelta(t, 0.5, Sigmoid(5, 5), 1e-12)
	assert.InDelta(t, -0.5, Sigmoid(-5, 5), 1e-12)
	// Saturates toward ±1 without reaching it.
	assert.Less(t, Sigmoid(1e12, 5), 1.0)
	assert.Greater(t, Sigmoid(1e12, 5), 0.999)
	assert.Greater(t, Sigmoid(-1e12, 5), -1.0)
}

func TestControlInputBounded(t *testing.T) {
	params := testParams(t)
	const w0 = 0.4
	lo, hi := w0*(1-params.P), w0*(1+params.P)

	grads := []geom.Vec2{
		{}, {X: 1e9, Y: 0}, {X: -1e9, Y: 0}, {X: 3, Y: -4},
		{X: -0.001, Y: 0.002}, {X: 1e300, Y: 1e300},
	}
	for _, g := range grads {
		for _, theta := range []float64{0, math.Pi / 3, math.Pi, -math.Pi / 2, 2.7} {
			w := ControlInput(w0, theta, g, params)
			assert.GreaterOrEqual(t, w, lo, "grad=%v theta=%v", g, theta)
			assert.LessOrEqual(t, w, hi, "grad=%v theta=%v", g, theta)
		}
	}

	// Zero gradient leaves the trim velocity untouched.
	assert.Equal(t, w0, ControlInput(w0, 1.0, geom.Vec2{}, params))
}
