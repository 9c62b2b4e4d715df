// Package swarm owns the per-agent round protocol of the coverage
// engine: each agent receives its Voronoi cell, computes centroid
// Jacobians, exchanges derivative reports with its neighbours over a
// round-scoped mailbox, turns the aggregated Lyapunov gradient into a
// bounded angular-velocity command, and integrates its unicycle pose.
//
// The protocol is round-synchronous: the simulation is logically
// single-threaded, and the mailbox's write phase completes for every
// agent before any agent reads. A missing neighbour report at the
// collection step is a fatal protocol error, not a retry condition.
package swarm

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/coverage.control/internal/barrier"
	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/gradient"
	"github.com/banshee-data/coverage.control/internal/monitoring"
	"github.com/banshee-data/coverage.control/internal/voronoi"
)

var (
	// ErrMissingReport means a neighbour's derivative report for the
	// current round was absent when the agent went to compute control.
	ErrMissingReport = errors.New("swarm: missing neighbor report")

	// ErrReportMismatch means a report crossed an agent boundary with
	// the wrong addressing, which indicates the protocol's
	// preconditions were broken upstream.
	ErrReportMismatch = errors.New("swarm: report addressed to wrong agent")

	// ErrPhase means a round step was invoked out of protocol order.
	ErrPhase = errors.New("swarm: protocol phase violation")
)

// Pose is a unicycle pose: position plus heading.
type Pose struct {
	X     float64
	Y     float64
	Theta float64
}

// Phase identifies the agent's position in the fixed round protocol.
// Phases are strictly ordered; no step may be skipped.
type Phase int

const (
	PhaseAwaitPartition Phase = iota
	PhaseComputeCVT
	PhasePublishReports
	PhaseAwaitReports
	PhaseComputeControl
	PhaseMove
)

var phaseNames = [...]string{
	"await-partition", "compute-cvt", "publish-reports",
	"await-reports", "compute-control", "move",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Agent is one coverage agent. ID and the trim parameters are fixed at
// construction; pose, virtual center, and the angular-velocity command
// mutate once per round.
type Agent struct {
	ID int
	Dt float64 // integration step
	V0 float64 // trim linear velocity
	W0 float64 // trim angular velocity

	Pose            Pose
	VirtualCenter   geom.Vec2
	AngularVelocity float64
	Potential       float64

	phase Phase
	round int
	skip  bool // empty cell this round: degraded-but-alive

	cell voronoi.Cell
	adjs []voronoi.Adjacency
	self geom.Mat2
	out  []gradient.Report
	grad geom.Vec2
}

// NewAgent constructs an agent at the given pose. A zero dt is a
// construction-time logic error; w0 must be non-zero because the
// virtual center is the trim trajectory's turning center at radius
// v0/w0.
func NewAgent(id int, pose Pose, dt, v0, w0 float64) (*Agent, error) {
	if dt == 0 {
		return nil, fmt.Errorf("agent %d: dt must be non-zero", id)
	}
	if w0 == 0 {
		return nil, fmt.Errorf("agent %d: w0 must be non-zero", id)
	}
	a := &Agent{
		ID:              id,
		Dt:              dt,
		V0:              v0,
		W0:              w0,
		Pose:            pose,
		AngularVelocity: w0,
	}
	a.VirtualCenter = virtualCenter(pose, v0, w0)
	return a, nil
}

// virtualCenter is the fixed look-ahead point of the trim motion: the
// center of the circle traced at constant v0, w0.
func virtualCenter(p Pose, v0, w0 float64) geom.Vec2 {
	r := v0 / w0
	return geom.Vec2{
		X: p.X - r*math.Sin(p.Theta),
		Y: p.Y + r*math.Cos(p.Theta),
	}
}

// Phase returns the agent's current protocol phase.
func (a *Agent) Phase() Phase { return a.phase }

// Round returns the number of completed rounds.
func (a *Agent) Round() int { return a.round }

// Gradient returns the total Lyapunov gradient from the last completed
// control step.
func (a *Agent) Gradient() geom.Vec2 { return a.grad }

func (a *Agent) checkPhase(want Phase) error {
	if a.phase != want {
		return fmt.Errorf("%w: agent %d in %v, expected %v", ErrPhase, a.ID, a.phase, want)
	}
	return nil
}

// ReceivePartition delivers this round's Voronoi cell and its
// adjacencies. An empty cell puts the agent into the degraded path for
// the rest of the round: it publishes nothing, computes nothing, and
// keeps its previous command.
func (a *Agent) ReceivePartition(cell voronoi.Cell, adjs []voronoi.Adjacency) error {
	if err := a.checkPhase(PhaseAwaitPartition); err != nil {
		return err
	}
	if cell.Generator != a.ID {
		return fmt.Errorf("%w: cell for generator %d delivered to agent %d",
			ErrReportMismatch, cell.Generator, a.ID)
	}
	a.cell = cell
	a.adjs = adjs
	a.skip = cell.Empty
	if a.skip {
		monitoring.Agentf(a.round, a.ID, "empty cell; keeping command w=%v", a.AngularVelocity)
	}
	a.phase = PhaseComputeCVT
	return nil
}

// ComputeDerivatives runs the centroid Jacobian computation for the
// received cell: the aggregate self-Jacobian plus one outgoing report
// per neighbour.
func (a *Agent) ComputeDerivatives(generators []geom.Vec2) error {
	if err := a.checkPhase(PhaseComputeCVT); err != nil {
		return err
	}
	if a.skip {
		a.out = nil
		a.phase = PhasePublishReports
		return nil
	}
	self, out, err := gradient.CellJacobians(a.cell, generators, a.adjs)
	if err != nil {
		return fmt.Errorf("agent %d: %w", a.ID, err)
	}
	a.self = self
	a.out = out
	a.phase = PhasePublishReports
	return nil
}

// PublishReports uploads this round's outgoing reports, replacing any
// stale entry from an earlier round. A degraded agent uploads an empty
// set so neighbours cannot read its previous round's reports.
func (a *Agent) PublishReports(mb *Mailbox) error {
	if err := a.checkPhase(PhasePublishReports); err != nil {
		return err
	}
	if err := mb.Upload(a.ID, a.out); err != nil {
		return fmt.Errorf("agent %d: %w", a.ID, err)
	}
	a.phase = PhaseAwaitReports
	return nil
}

// CollectReports gathers the reports addressed to this agent. Every
// Voronoi neighbour of this round must have published one; a missing
// or misaddressed report is fatal.
func (a *Agent) CollectReports(mb *Mailbox) ([]gradient.Report, error) {
	if err := a.checkPhase(PhaseAwaitReports); err != nil {
		return nil, err
	}
	if a.skip {
		a.phase = PhaseComputeControl
		return nil, nil
	}

	inbox, _ := mb.Download(a.ID)
	bySender := make(map[int]gradient.Report, len(inbox))
	for _, r := range inbox {
		if r.Receiver != a.ID {
			return nil, fmt.Errorf("%w: report %d->%d read by agent %d",
				ErrReportMismatch, r.Sender, r.Receiver, a.ID)
		}
		bySender[r.Sender] = r
	}

	reports := make([]gradient.Report, 0, len(a.adjs))
	for _, adj := range a.adjs {
		j := adj.Other(a.ID)
		r, ok := bySender[j]
		if !ok {
			return nil, fmt.Errorf("%w: agent %d round %d expected report from %d",
				ErrMissingReport, a.ID, a.round, j)
		}
		reports = append(reports, r)
	}
	a.phase = PhaseComputeControl
	return reports, nil
}

// ComputeControl evaluates the barrier-Lyapunov potential, aggregates
// the neighbour gradient terms, and stores the saturated angular
// velocity. A degraded agent passes through with its previous command
// untouched.
func (a *Agent) ComputeControl(reports []gradient.Report, bounds []geom.HalfPlane, params barrier.Params) error {
	if err := a.checkPhase(PhaseComputeControl); err != nil {
		return err
	}
	if a.skip {
		a.phase = PhaseMove
		return nil
	}

	st, err := barrier.Evaluate(a.VirtualCenter, a.cell.Centroid, a.self, bounds, params)
	if err != nil {
		return fmt.Errorf("agent %d: %w", a.ID, err)
	}
	g := st.Grad
	for _, r := range reports {
		if r.Receiver != a.ID {
			return fmt.Errorf("%w: report %d->%d in agent %d control step",
				ErrReportMismatch, r.Sender, r.Receiver, a.ID)
		}
		term, err := barrier.NeighborTerm(r, bounds, params)
		if err != nil {
			return fmt.Errorf("agent %d: %w", a.ID, err)
		}
		g = g.Add(term)
	}

	a.Potential = st.V
	a.grad = g
	a.AngularVelocity = barrier.ControlInput(a.W0, a.Pose.Theta, g, params)
	a.phase = PhaseMove
	return nil
}

// Move integrates the unicycle kinematics over one step with the
// stored command, recomputes the virtual center, and re-arms the agent
// for the next round.
func (a *Agent) Move() error {
	if err := a.checkPhase(PhaseMove); err != nil {
		return err
	}
	a.Pose.X += a.Dt * a.V0 * math.Cos(a.Pose.Theta)
	a.Pose.Y += a.Dt * a.V0 * math.Sin(a.Pose.Theta)
	a.Pose.Theta += a.Dt * a.AngularVelocity
	a.VirtualCenter = virtualCenter(a.Pose, a.V0, a.W0)
	a.skip = false
	a.round++
	a.phase = PhaseAwaitPartition
	return nil
}
