// Package config loads the simulation configuration: the coverage
// region, per-agent initial poses and trim velocities, the
// control-law parameters, and the round count. Fields omitted from
// the JSON file retain their default values, so partial configs are
// safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/coverage.control/internal/barrier"
	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/swarm"
)

// AgentConfig is one agent's initial state. V0 and W0 override the
// run-wide trim velocities when set.
type AgentConfig struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Theta float64  `json:"theta"`
	V0    *float64 `json:"v0,omitempty"`
	W0    *float64 `json:"w0,omitempty"`
}

// Config is the root simulation configuration. The region may be given
// as an ordered CCW vertex list, as explicit [a_x, a_y, b] half-plane
// coefficient rows, or both (vertices define the Voronoi region,
// coefficient rows the barrier constraints).
type Config struct {
	RegionVertices [][2]float64 `json:"region_vertices,omitempty"`
	BoundaryCoeffs [][3]float64 `json:"boundary_coeffs,omitempty"`
	BoundaryExtent *float64     `json:"boundary_extent,omitempty"` // bounding extent when only coefficients are given

	Agents []AgentConfig `json:"agents"`

	Dt     *float64 `json:"dt,omitempty"`
	V0     *float64 `json:"v0,omitempty"`
	W0     *float64 `json:"w0,omitempty"`
	Rounds *int     `json:"rounds,omitempty"`

	// Control-law parameters.
	Q   *[2][2]float64 `json:"q,omitempty"`
	P   *float64       `json:"p,omitempty"`
	Eps *float64       `json:"eps,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultConfig returns the baseline parameters: a [0,10]² region and
// the control constants the law was tuned with (Q = 5·I, P = 3,
// eps = 5).
func DefaultConfig() *Config {
	return &Config{
		RegionVertices: [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}},
		Dt:             ptrFloat64(0.05),
		V0:             ptrFloat64(0.2),
		W0:             ptrFloat64(0.5),
		Rounds:         ptrInt(200),
		Q:              &[2][2]float64{{5, 0}, {0, 5}},
		P:              ptrFloat64(3),
		Eps:            ptrFloat64(5),
		BoundaryExtent: ptrFloat64(1e4),
	}
}

// Load reads a JSON config file and fills omitted fields from
// DefaultConfig. The file must have a .json extension and stay under
// the max file size.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if len(c.RegionVertices) == 0 && len(c.BoundaryCoeffs) == 0 {
		c.RegionVertices = def.RegionVertices
	}
	if c.BoundaryExtent == nil {
		c.BoundaryExtent = def.BoundaryExtent
	}
	if c.Dt == nil {
		c.Dt = def.Dt
	}
	if c.V0 == nil {
		c.V0 = def.V0
	}
	if c.W0 == nil {
		c.W0 = def.W0
	}
	if c.Rounds == nil {
		c.Rounds = def.Rounds
	}
	if c.Q == nil {
		c.Q = def.Q
	}
	if c.P == nil {
		c.P = def.P
	}
	if c.Eps == nil {
		c.Eps = def.Eps
	}
}

// Validate checks the invariants the kernel constructors will enforce
// again, so a bad file fails at load time with a file-level message.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("config has no agents")
	}
	if *c.Dt == 0 {
		return fmt.Errorf("dt must be non-zero")
	}
	if *c.Rounds < 0 {
		return fmt.Errorf("rounds must be non-negative, got %d", *c.Rounds)
	}
	for i, a := range c.Agents {
		if a.W0 != nil && *a.W0 == 0 {
			return fmt.Errorf("agent %d: w0 must be non-zero", i)
		}
	}
	if *c.W0 == 0 {
		return fmt.Errorf("w0 must be non-zero")
	}
	if _, _, err := c.Region(); err != nil {
		return err
	}
	if _, err := c.ControlParams(); err != nil {
		return err
	}
	return nil
}

// Region builds the coverage region polygon and the barrier
// half-planes. Vertex lists yield both; coefficient rows define the
// half-planes directly, with the polygon reconstructed from their
// intersection when no vertices are given.
func (c *Config) Region() (geom.Polygon, []geom.HalfPlane, error) {
	var poly geom.Polygon
	for _, v := range c.RegionVertices {
		poly = append(poly, geom.Vec2{X: v[0], Y: v[1]})
	}

	if len(c.BoundaryCoeffs) > 0 {
		hps, err := geom.HalfPlanesFromCoeffs(c.BoundaryCoeffs)
		if err != nil {
			return nil, nil, err
		}
		if poly == nil {
			poly, err = geom.PolygonFromHalfPlanes(hps, *c.BoundaryExtent)
			if err != nil {
				return nil, nil, err
			}
		}
		return poly, hps, nil
	}

	hps, err := poly.HalfPlanes()
	if err != nil {
		return nil, nil, err
	}
	return poly, hps, nil
}

// ControlParams builds the validated barrier parameters.
func (c *Config) ControlParams() (barrier.Params, error) {
	q := geom.Mat2{
		{(*c.Q)[0][0], (*c.Q)[0][1]},
		{(*c.Q)[1][0], (*c.Q)[1][1]},
	}
	return barrier.NewParams(q, *c.P, *c.Eps)
}

// BuildAgents constructs the agent set from the configured poses and
// trim velocities.
func (c *Config) BuildAgents() ([]*swarm.Agent, error) {
	agents := make([]*swarm.Agent, len(c.Agents))
	for i, ac := range c.Agents {
		v0, w0 := *c.V0, *c.W0
		if ac.V0 != nil {
			v0 = *ac.V0
		}
		if ac.W0 != nil {
			w0 = *ac.W0
		}
		a, err := swarm.NewAgent(i, swarm.Pose{X: ac.X, Y: ac.Y, Theta: ac.Theta}, *c.Dt, v0, w0)
		if err != nil {
			return nil, err
		}
		agents[i] = a
	}
	return agents, nil
}
