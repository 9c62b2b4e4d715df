package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "sim.json", `{
		"agents": [
			{"x": 2, "y": 3, "theta": 0.5},
			{"x": 7, "y": 6, "theta": -1.0}
		]
	}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *c.Dt != 0.05 || *c.V0 != 0.2 || *c.W0 != 0.5 {
		t.Errorf("defaults not applied: dt=%v v0=%v w0=%v", *c.Dt, *c.V0, *c.W0)
	}
	if *c.P != 3 || *c.Eps != 5 || (*c.Q)[0][0] != 5 {
		t.Errorf("control defaults not applied: P=%v eps=%v Q=%v", *c.P, *c.Eps, *c.Q)
	}
	if *c.Rounds != 200 {
		t.Errorf("rounds default = %d, want 200", *c.Rounds)
	}

	poly, hps, err := c.Region()
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if got := poly.Area(); got != 100 {
		t.Errorf("default region area = %v, want 100", got)
	}
	if len(hps) != 4 {
		t.Errorf("default region half-planes = %d, want 4", len(hps))
	}

	agents, err := c.BuildAgents()
	if err != nil {
		t.Fatalf("BuildAgents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("got %d agents, want 2", len(agents))
	}
	if agents[0].ID != 0 || agents[1].ID != 1 {
		t.Errorf("agent ids not dense: %d, %d", agents[0].ID, agents[1].ID)
	}
	if agents[1].Pose.X != 7 || agents[1].Pose.Theta != -1.0 {
		t.Errorf("agent pose not applied: %+v", agents[1].Pose)
	}
}

func TestLoadPerAgentOverrides(t *testing.T) {
	path := writeConfig(t, "sim.json", `{
		"agents": [
			{"x": 2, "y": 3, "theta": 0, "v0": 0.4, "w0": 0.9}
		],
		"dt": 0.1,
		"rounds": 10
	}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	agents, err := c.BuildAgents()
	if err != nil {
		t.Fatalf("BuildAgents: %v", err)
	}
	a := agents[0]
	if a.V0 != 0.4 || a.W0 != 0.9 || a.Dt != 0.1 {
		t.Errorf("overrides not applied: v0=%v w0=%v dt=%v", a.V0, a.W0, a.Dt)
	}
}

func TestLoadBoundaryCoefficients(t *testing.T) {
	// The region x,y >= 0, x <= 10, y <= 10 as explicit rows.
	path := writeConfig(t, "sim.json", `{
		"agents": [{"x": 5, "y": 5, "theta": 0}],
		"boundary_coeffs": [
			[-1, 0, 0],
			[0, -1, 0],
			[1, 0, 10],
			[0, 1, 10]
		]
	}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	poly, hps, err := c.Region()
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if len(hps) != 4 {
		t.Errorf("half-planes = %d, want 4", len(hps))
	}
	if got := poly.Area(); got < 99.999 || got > 100.001 {
		t.Errorf("reconstructed region area = %v, want 100", got)
	}
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "sim.yaml", `{}`},
		{"invalid json", "sim.json", `{"agents": [`},
		{"no agents", "sim.json", `{}`},
		{"zero dt", "sim.json", `{"agents":[{"x":1,"y":1}], "dt": 0}`},
		{"zero w0", "sim.json", `{"agents":[{"x":1,"y":1}], "w0": 0}`},
		{"zero agent w0", "sim.json", `{"agents":[{"x":1,"y":1,"w0":0}]}`},
		{"negative rounds", "sim.json", `{"agents":[{"x":1,"y":1}], "rounds": -1}`},
		{"indefinite Q", "sim.json", `{"agents":[{"x":1,"y":1}], "q": [[1,0],[0,-1]]}`},
		{"zero eps", "sim.json", `{"agents":[{"x":1,"y":1}], "eps": 0}`},
		{"degenerate region", "sim.json", `{"agents":[{"x":1,"y":1}], "region_vertices": [[0,0],[1,0]]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.file, tc.content)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
