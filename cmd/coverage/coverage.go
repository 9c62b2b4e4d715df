// Command coverage runs the multi-robot coverage-control simulation:
// agents partition a convex region into a centroidal Voronoi
// tessellation and steer toward their cell centroids under the
// barrier-Lyapunov control law. It can run the distributed protocol,
// the centralized orchestrator, or both in lockstep to cross-check
// them.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/coverage.control/internal/config"
	"github.com/banshee-data/coverage.control/internal/geom"
	"github.com/banshee-data/coverage.control/internal/gradient"
	"github.com/banshee-data/coverage.control/internal/runstore"
	"github.com/banshee-data/coverage.control/internal/swarm"
)

var (
	configPath = flag.String("config", "", "Path to the simulation config JSON (required)")
	mode       = flag.String("mode", "distributed", "Execution mode: distributed or central")
	rounds     = flag.Int("rounds", 0, "Override the config round count (0 keeps the config value)")
	dbPath     = flag.String("db", "", "Record per-round samples to this SQLite database")
	verify     = flag.Bool("verify", false, "Run both modes in lockstep and cross-check outputs")
	quiet      = flag.Bool("quiet", false, "Suppress per-round summaries")
)

// verifyTolerance is the per-value slack allowed between the central
// and distributed paths; they share every code path, so divergence
// beyond round-off means a protocol bug.
const verifyTolerance = 1e-9

// fdTolerance flags finite-difference mismatches of the analytic
// Jacobians for offline diagnosis. Mismatches never halt the run.
const fdTolerance = 1e-5

func main() {
	flag.Parse()

	if *configPath == "" {
		log.Fatal("-config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := run(cfg, *mode, *rounds, *dbPath, *verify, *quiet); err != nil {
		log.Fatal(err)
	}
}

// runner is the per-round surface shared by the distributed simulation
// and the centralized orchestrator.
type runner interface {
	Run(rounds int, record func([]swarm.RoundSample) error) error
}

func run(cfg *config.Config, mode string, roundsOverride int, dbPath string, verify, quiet bool) error {
	region, bounds, err := cfg.Region()
	if err != nil {
		return err
	}
	params, err := cfg.ControlParams()
	if err != nil {
		return err
	}
	nRounds := *cfg.Rounds
	if roundsOverride > 0 {
		nRounds = roundsOverride
	}

	if verify {
		return runVerify(cfg, nRounds, quiet)
	}

	agents, err := cfg.BuildAgents()
	if err != nil {
		return err
	}

	var r runner
	switch mode {
	case "distributed":
		r, err = swarm.NewSimulation(region, bounds, params, agents)
	case "central":
		r, err = swarm.NewCentral(region, bounds, params, agents)
	default:
		return fmt.Errorf("unknown mode %q (want distributed or central)", mode)
	}
	if err != nil {
		return err
	}

	record := func([]swarm.RoundSample) error { return nil }
	if dbPath != "" {
		store, err := runstore.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err := store.BeginRun(mode, len(agents), nRounds)
		if err != nil {
			return err
		}
		log.Printf("recording run %s to %s", runID, dbPath)
		record = func(samples []swarm.RoundSample) error {
			return store.RecordRound(runID, samples)
		}
	}

	return r.Run(nRounds, func(samples []swarm.RoundSample) error {
		if !quiet {
			logRound(samples)
		}
		return record(samples)
	})
}

// logRound prints one round's aggregate summary.
func logRound(samples []swarm.RoundSample) {
	if len(samples) == 0 {
		return
	}
	var sumV, maxW float64
	for _, smp := range samples {
		sumV += smp.Potential
		if w := math.Abs(smp.AngularVelocity); w > maxW {
			maxW = w
		}
	}
	log.Printf("round=%d agents=%d total_V=%.6f max_abs_w=%.4f",
		samples[0].Round, len(samples), sumV, maxW)
}

// runVerify runs the distributed protocol and the centralized
// orchestrator in lockstep on identical agent sets and reports the
// first round where their outputs diverge. It also finite-difference
// checks the analytic Jacobians at the initial configuration.
func runVerify(cfg *config.Config, nRounds int, quiet bool) error {
	region, bounds, err := cfg.Region()
	if err != nil {
		return err
	}
	params, err := cfg.ControlParams()
	if err != nil {
		return err
	}

	distAgents, err := cfg.BuildAgents()
	if err != nil {
		return err
	}
	centAgents, err := cfg.BuildAgents()
	if err != nil {
		return err
	}
	sim, err := swarm.NewSimulation(region, bounds, params, distAgents)
	if err != nil {
		return err
	}
	central, err := swarm.NewCentral(region, bounds, params, centAgents)
	if err != nil {
		return err
	}

	// Derivative self-check at the starting configuration. Mismatches
	// are diagnostics, not failures.
	checkJacobians(distAgents, region)

	for r := 0; r < nRounds; r++ {
		distSamples, err := sim.Step()
		if err != nil {
			return fmt.Errorf("distributed round %d: %w", r, err)
		}
		centSamples, err := central.Step()
		if err != nil {
			return fmt.Errorf("central round %d: %w", r, err)
		}
		if diff := cmp.Diff(centSamples, distSamples, cmpopts.EquateApprox(0, verifyTolerance)); diff != "" {
			return fmt.Errorf("round %d: central/distributed divergence (-central +distributed):\n%s", r, diff)
		}
		if !quiet {
			logRound(distSamples)
		}
	}
	log.Printf("verify passed: %d rounds, %d agents", nRounds, len(distAgents))
	return nil
}

// checkJacobians finite-difference checks every agent's analytic
// Jacobians at the current configuration.
func checkJacobians(agents []*swarm.Agent, region geom.Polygon) {
	generators := make([]geom.Vec2, len(agents))
	for i, a := range agents {
		generators[i] = a.VirtualCenter
	}
	for i := range generators {
		maxErr, err := gradient.FiniteDiffCheck(generators, region, i, 1e-6)
		if err != nil {
			log.Printf("jacobian check skipped for agent %d: %v", i, err)
			continue
		}
		if maxErr > fdTolerance {
			log.Printf("jacobian check agent %d: mismatch %.3g exceeds %.1g", i, maxErr, fdTolerance)
		}
	}
}
