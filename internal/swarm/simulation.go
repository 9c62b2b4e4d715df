package swarm

import (
	"fmt"

	"github.com/banshee-data/coverage.control/internal/barrier"
	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/voronoi"
)

// RoundSample is one agent's externally visible output for one round,
// captured after the control step and before the move.
type RoundSample struct {
	Round           int
	AgentID         int
	Pose            Pose
	VirtualCenter   geom.Vec2
	Centroid        geom.Vec2
	AngularVelocity float64
	Potential       float64
}

// Simulation drives the distributed round protocol: every agent runs
// the full partition / derivative / publish / collect / control / move
// sequence against a shared mailbox, with the generator set broadcast
// once per round and mutated only between rounds.
type Simulation struct {
	Region geom.Polygon
	Bounds []geom.HalfPlane
	Params barrier.Params
	Agents []*Agent

	mailbox *Mailbox
	round   int
}

// NewSimulation wires agents, region, and control parameters together.
// Agent ids must be dense 0..n-1 in slice order so they can index the
// broadcast generator vector. When bounds is nil the region's own edge
// half-planes are used.
func NewSimulation(region geom.Polygon, bounds []geom.HalfPlane, params barrier.Params, agents []*Agent) (*Simulation, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agents")
	}
	ids := make([]int, len(agents))
	for i, a := range agents {
		if a.ID != i {
			return nil, fmt.Errorf("agent ids must be dense: index %d has id %d", i, a.ID)
		}
		ids[i] = a.ID
	}
	if bounds == nil {
		var err error
		bounds, err = region.HalfPlanes()
		if err != nil {
			return nil, err
		}
	}
	return &Simulation{
		Region:  region,
		Bounds:  bounds,
		Params:  params,
		Agents:  agents,
		mailbox: NewMailbox(ids),
	}, nil
}

// Round returns the number of completed rounds.
func (s *Simulation) Round() int { return s.round }

// Step runs one full round and returns each agent's sample. Fatal
// protocol errors (infeasible margins, missing or misaddressed
// reports) abort the round and propagate.
func (s *Simulation) Step() ([]RoundSample, error) {
	generators := make([]geom.Vec2, len(s.Agents))
	for i, a := range s.Agents {
		generators[i] = a.VirtualCenter
	}
	diagram, err := voronoi.Compute(generators, s.Region)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", s.round, err)
	}

	s.mailbox.Reset()

	// Partition delivery and derivative computation.
	for _, a := range s.Agents {
		if err := a.ReceivePartition(diagram.Cells[a.ID], diagram.Neighbors(a.ID)); err != nil {
			return nil, err
		}
		if err := a.ComputeDerivatives(generators); err != nil {
			return nil, err
		}
	}

	// Write phase: every agent publishes before any agent reads.
	for _, a := range s.Agents {
		if err := a.PublishReports(s.mailbox); err != nil {
			return nil, err
		}
	}

	// Read phase and control computation.
	for _, a := range s.Agents {
		reports, err := a.CollectReports(s.mailbox)
		if err != nil {
			return nil, err
		}
		if err := a.ComputeControl(reports, s.Bounds, s.Params); err != nil {
			return nil, err
		}
	}

	samples := make([]RoundSample, len(s.Agents))
	for i, a := range s.Agents {
		samples[i] = RoundSample{
			Round:           s.round,
			AgentID:         a.ID,
			Pose:            a.Pose,
			VirtualCenter:   a.VirtualCenter,
			Centroid:        diagram.Cells[a.ID].Centroid,
			AngularVelocity: a.AngularVelocity,
			Potential:       a.Potential,
		}
	}

	for _, a := range s.Agents {
		if err := a.Move(); err != nil {
			return nil, err
		}
	}
	s.round++
	return samples, nil
}

// Run executes the given number of rounds, invoking record (if
// non-nil) with each round's samples. The round count is the only
// terminal condition; the protocol itself never terminates.
func (s *Simulation) Run(rounds int, record func([]RoundSample) error) error {
	for r := 0; r < rounds; r++ {
		samples, err := s.Step()
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
