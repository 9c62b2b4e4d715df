// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common numeric test helpers to reduce code
// duplication across test files and improve test maintainability.
package testutil

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/banshee-data/coverage.control/internal/geom"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta checks that got is within tol of want.
func AssertInDelta(t *testing.T, got, want, tol float64) {
	t.Helper()
	if !scalar.EqualWithinAbs(got, want, tol) {
		t.Errorf("got %v, want %v (±%v)", got, want, tol)
	}
}

// AssertVec2Near checks both components of a vector within tol.
func AssertVec2Near(t *testing.T, got, want geom.Vec2, tol float64) {
	t.Helper()
	if !scalar.EqualWithinAbs(got.X, want.X, tol) || !scalar.EqualWithinAbs(got.Y, want.Y, tol) {
		t.Errorf("got %v, want %v (±%v)", got, want, tol)
	}
}

// AssertMat2Near checks all components of a 2x2 matrix within tol.
func AssertMat2Near(t *testing.T, got, want geom.Mat2, tol float64) {
	t.Helper()
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if !scalar.EqualWithinAbs(got[r][c], want[r][c], tol) {
				t.Errorf("[%d][%d]: got %v, want %v (±%v)", r, c, got[r][c], want[r][c], tol)
			}
		}
	}
}
