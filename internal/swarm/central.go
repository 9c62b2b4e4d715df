package swarm

import (
	"fmt"
	"math"

	"github.com/banshee-data/coverage.control/internal/barrier"
	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/gradient"
	"github.com/banshee-data/coverage.control/internal/monitoring"
	"github.com/banshee-data/coverage.control/internal/voronoi"
)

// Central is the centralized orchestrator: the same mathematics as the
// distributed protocol, computed in one pass over a dense adjacency
// structure with no message-passing indirection. It is both a simpler
// deployment mode and the ground truth the distributed path is checked
// against.
type Central struct {
	Region geom.Polygon
	Bounds []geom.HalfPlane
	Params barrier.Params
	Agents []*Agent

	round int
}

// NewCentral mirrors NewSimulation's wiring without a mailbox.
func NewCentral(region geom.Polygon, bounds []geom.HalfPlane, params barrier.Params, agents []*Agent) (*Central, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agents")
	}
	for i, a := range agents {
		if a.ID != i {
			return nil, fmt.Errorf("agent ids must be dense: index %d has id %d", i, a.ID)
		}
	}
	if bounds == nil {
		var err error
		bounds, err = region.HalfPlanes()
		if err != nil {
			return nil, err
		}
	}
	return &Central{Region: region, Bounds: bounds, Params: params, Agents: agents}, nil
}

// Round returns the number of completed rounds.
func (c *Central) Round() int { return c.round }

// Step computes one round for every agent: global diagram, per-cell
// Jacobians, barrier potentials and aggregated gradients, saturated
// commands, then the kinematic update. Agents with empty cells keep
// their previous command, exactly like the distributed degraded path.
func (c *Central) Step() ([]RoundSample, error) {
	generators := make([]geom.Vec2, len(c.Agents))
	for i, a := range c.Agents {
		generators[i] = a.VirtualCenter
	}
	diagram, err := voronoi.Compute(generators, c.Region)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", c.round, err)
	}

	// Dense pass: every cell's self-Jacobian and every ordered pair's
	// cross term, indexed sender -> receiver.
	selfJac := make([]geom.Mat2, len(c.Agents))
	crossTo := make([]map[int]gradient.Report, len(c.Agents))
	for i := range c.Agents {
		cell := diagram.Cells[i]
		if cell.Empty {
			monitoring.Agentf(c.round, i, "empty cell; keeping command w=%v", c.Agents[i].AngularVelocity)
			continue
		}
		self, reports, err := gradient.CellJacobians(cell, generators, diagram.Neighbors(i))
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		selfJac[i] = self
		crossTo[i] = make(map[int]gradient.Report, len(reports))
		for _, r := range reports {
			crossTo[i][r.Receiver] = r
		}
	}

	samples := make([]RoundSample, len(c.Agents))
	for i, a := range c.Agents {
		cell := diagram.Cells[i]
		if !cell.Empty {
			st, err := barrier.Evaluate(a.VirtualCenter, cell.Centroid, selfJac[i], c.Bounds, c.Params)
			if err != nil {
				return nil, fmt.Errorf("agent %d: %w", i, err)
			}
			g := st.Grad
			for _, adj := range diagram.Neighbors(i) {
				j := adj.Other(i)
				r, ok := crossTo[j][i]
				if !ok {
					return nil, fmt.Errorf("%w: agent %d round %d has no cross term from %d",
						ErrMissingReport, i, c.round, j)
				}
				term, err := barrier.NeighborTerm(r, c.Bounds, c.Params)
				if err != nil {
					return nil, fmt.Errorf("agent %d: %w", i, err)
				}
				g = g.Add(term)
			}
			a.Potential = st.V
			a.grad = g
			a.AngularVelocity = barrier.ControlInput(a.W0, a.Pose.Theta, g, c.Params)
		}
		samples[i] = RoundSample{
			Round:           c.round,
			AgentID:         a.ID,
			Pose:            a.Pose,
			VirtualCenter:   a.VirtualCenter,
			Centroid:        cell.Centroid,
			AngularVelocity: a.AngularVelocity,
			Potential:       a.Potential,
		}
	}

	for _, a := range c.Agents {
		a.Pose.X += a.Dt * a.V0 * math.Cos(a.Pose.Theta)
		a.Pose.Y += a.Dt * a.V0 * math.Sin(a.Pose.Theta)
		a.Pose.Theta += a.Dt * a.AngularVelocity
		a.VirtualCenter = virtualCenter(a.Pose, a.V0, a.W0)
		a.round++
	}
	c.round++
	return samples, nil
}

// Run executes the given number of rounds, invoking record (if
// non-nil) with each round's samples.
func (c *Central) Run(rounds int, record func([]RoundSample) error) error {
	for r := 0; r < rounds; r++ {
		samples, err := c.Step()
		if err != nil {
			return err
		}
		if record != nil {
			if err := record(samples); err != nil {
				return err
			}
		}
	}
	return nil
}
