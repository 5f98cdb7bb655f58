package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per loop iteration")
	queryStrategy := flag.String("query", "", "Neighbor query strategy: grid or brute (empty = use config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Use config stats window if not overridden by CLI
	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}

	s, err := sim.New(sim.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: statsWindowSec,
		OutputDir:      *outputDir,
	})
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	if *queryStrategy != "" {
		if err := s.SetQueryStrategy(*queryStrategy); err != nil {
			slog.Error("invalid query strategy", "error", err)
			os.Exit(1)
		}
	}

	steps := *stepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"agents", s.AgentCount(),
		"query", s.QueryStrategy(),
		"stats_window", statsWindowSec,
		"max_ticks", *maxTicks,
		"steps_per_update", steps,
	)

	for {
		for i := 0; i < steps; i++ {
			s.Step()
		}

		if *maxTicks > 0 && int(s.Tick()) >= *maxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			return
		}
	}
}
