package voronoi

import (
	"math"
	"testing"

	"github.com/banshee-data/coverage.control/internal/geom"
)

func square(lo, hi float64) geom.Polygon {
	return geom.Polygon{{X: lo, Y: lo}, {X: hi, Y: lo}, {X: hi, Y: hi}, {X: lo, Y: hi}}
}

func TestSingleGeneratorOwnsRegion(t *testing.T) {
	region := square(0, 10)
	d, err := Compute([]geom.Vec2{{X: 2, Y: 7}}, region)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(d.Cells) != 1 {
		t.Fatalf("got %d cells, want 1", len(d.Cells))
	}
	c := d.Cells[0]
	if c.Empty {
		t.Fatal("single cell should not be empty")
	}
	if c.Mass != 100 {
		t.Errorf("mass = %v, want 100", c.Mass)
	}
	if c.Centroid != (geom.Vec2{X: 5, Y: 5}) {
		t.Errorf("centroid = %v, want {5 5}", c.Centroid)
	}
	if len(d.Adjacencies) != 0 {
		t.Errorf("unexpected adjacencies: %v", d.Adjacencies)
	}
}

func TestBisectorEdgeBetweenTwoGenerators(t *testing.T) {
	// Generators at (0,0) and (10,0) inside a large square: the shared
	// edge must lie exactly on x = 5.
	region := square(-100, 100)
	d, err := Compute([]geom.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}}, region)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(d.Adjacencies) != 1 {
		t.Fatalf("got %d adjacencies, want 1", len(d.Adjacencies))
	}
	a := d.Adjacencies[0]
	if a.I != 0 || a.J != 1 {
		t.Errorf("adjacency pair = (%d,%d), want (0,1)", a.I, a.J)
	}
	if math.Abs(a.V1.X-5) > 1e-9 || math.Abs(a.V2.X-5) > 1e-9 {
		t.Errorf("shared edge not on x=5: %v %v", a.V1, a.V2)
	}
	if a.Other(0) != 1 || a.Other(1) != 0 {
		t.Errorf("Other lookup broken: %+v", a)
	}

	// The two cells split the region evenly.
	total := d.Cells[0].Mass + d.Cells[1].Mass
	if math.Abs(total-region.Area()) > 1e-6 {
		t.Errorf("cell masses %v + %v do not cover region area %v",
			d.Cells[0].Mass, d.Cells[1].Mass, region.Area())
	}
	if math.Abs(d.Cells[0].Mass-d.Cells[1].Mass) > 1e-6 {
		t.Errorf("symmetric generators should split mass evenly: %v vs %v",
			d.Cells[0].Mass, d.Cells[1].Mass)
	}
}

func TestCellsPartitionRegion(t *testing.T) {
	region := square(0, 10)
	gens := []geom.Vec2{
		{X: 2, Y: 2}, {X: 8, Y: 3}, {X: 5, Y: 8}, {X: 3, Y: 6},
	}
	d, err := Compute(gens, region)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	var total float64
	for i, c := range d.Cells {
		if c.Empty {
			t.Fatalf("cell %d unexpectedly empty", i)
		}
		if !c.Polygon.Contains(gens[i]) {
			t.Errorf("generator %d not inside its own cell", i)
		}
		total += c.Mass
	}
	if math.Abs(total-100) > 1e-6 {
		t.Errorf("cell masses sum to %v, want 100", total)
	}
	if len(d.Adjacencies) == 0 {
		t.Error("expected at least one adjacency")
	}
	for _, a := range d.Adjacencies {
		if a.V1.Dist(a.V2) == 0 {
			t.Errorf("zero-length shared edge for pair (%d,%d)", a.I, a.J)
		}
	}
}

func TestGeneratorOutsideRegionIsEmpty(t *testing.T) {
	region := square(0, 10)
	gens := []geom.Vec2{{X: 5, Y: 5}, {X: 50, Y: 50}}
	d, err := Compute(gens, region)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !d.Cells[1].Empty {
		t.Error("far-outside generator should yield an empty cell")
	}
	if d.Cells[0].Empty {
		t.Error("inside generator should keep its cell")
	}
	// Empty cells take no part in adjacency.
	if n := d.Neighbors(1); len(n) != 0 {
		t.Errorf("empty cell has neighbors: %v", n)
	}
}

func TestCoincidentGeneratorsAreEmpty(t *testing.T) {
	region := square(0, 10)
	gens := []geom.Vec2{{X: 5, Y: 5}, {X: 5, Y: 5}}
	d, err := Compute(gens, region)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !d.Cells[0].Empty || !d.Cells[1].Empty {
		t.Errorf("coincident generators should both be empty: %+v", d.Cells)
	}
	if len(d.Adjacencies) != 0 {
		t.Errorf("unexpected adjacencies: %v", d.Adjacencies)
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	if _, err := Compute(nil, square(0, 10)); err == nil {
		t.Error("expected error for no generators")
	}
	if _, err := Compute([]geom.Vec2{{X: 1, Y: 1}}, geom.Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}}); err == nil {
		t.Error("expected error for degenerate region")
	}
}

func TestNeighborsFiltersByID(t *testing.T) {
	region := square(0, 10)
	gens := []geom.Vec2{{X: 2, Y: 5}, {X: 5, Y: 5}, {X: 8, Y: 5}}
	d, err := Compute(gens, region)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// Collinear generators: middle cell touches both, outer cells only
	// the middle one.
	if n := d.Neighbors(1); len(n) != 2 {
		t.Errorf("middle cell neighbors = %d, want 2", len(n))
	}
	if n := d.Neighbors(0); len(n) != 1 || n[0].Other(0) != 1 {
		t.Errorf("left cell neighbors = %v, want just the middle", n)
	}
}
