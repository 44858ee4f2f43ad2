// Command outbreak runs the SLIR epidemic simulation over a partitioned
// population.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lemonad/outbreak-simulation/internal/api"
	"github.com/lemonad/outbreak-simulation/internal/config"
	"github.com/lemonad/outbreak-simulation/internal/distributions"
	"github.com/lemonad/outbreak-simulation/internal/engine"
	"github.com/lemonad/outbreak-simulation/internal/entropy"
	"github.com/lemonad/outbreak-simulation/internal/epidemic"
	"github.com/lemonad/outbreak-simulation/internal/logging"
	"github.com/lemonad/outbreak-simulation/internal/persistence"
)

var (
	configPath string
	seed       int64
	width      int
	height     int
	steps      uint64
	infected   int
	dbPath     string
	port       int
	interval   time.Duration

	rootCmd = &cobra.Command{
		Use:           "outbreak",
		Short:         "SLIR outbreak simulation over a BSP-partitioned contact graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Build a population, seed infections and step until the outbreak ends",
		RunE:  runOutbreak,
	}

	profilesCmd = &cobra.Command{
		Use:   "profiles",
		Short: "Print the dwell-time profiles and their distribution summaries",
		RunE:  printProfiles,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	f := runCmd.Flags()
	f.Int64Var(&seed, "seed", 0, "random seed (0 = random)")
	f.IntVar(&width, "width", 0, "domain width")
	f.IntVar(&height, "height", 0, "domain height")
	f.Uint64Var(&steps, "steps", 0, "maximum steps (0 = until clear)")
	f.IntVar(&infected, "infected", 0, "individuals to seed as infectious")
	f.StringVar(&dbPath, "db", "", "SQLite file to record the run into")
	f.IntVar(&port, "port", 0, "HTTP API port (0 = disabled)")
	f.DurationVar(&interval, "interval", 0, "pause between steps")

	rootCmd.AddCommand(runCmd, profilesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("outbreak failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies any flags set on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("width") {
		cfg.Width = width
	}
	if f.Changed("height") {
		cfg.Height = height
	}
	if f.Changed("steps") {
		cfg.Steps = steps
	}
	if f.Changed("infected") {
		cfg.InitialInfected = infected
	}
	if f.Changed("db") {
		cfg.DBPath = dbPath
	}
	if f.Changed("port") {
		cfg.API.Port = port
	}
	return cfg, cfg.Validate()
}

func runOutbreak(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	// ── Population ────────────────────────────────────────────────────
	sim, err := engine.NewSimulation(cfg.Engine())
	if err != nil {
		return fmt.Errorf("build population: %w", err)
	}
	if _, err := sim.InfectRandom(cfg.InitialInfected); err != nil {
		return fmt.Errorf("seed infections: %w", err)
	}

	eng := engine.NewEngine(sim)
	eng.MaxSteps = cfg.Steps
	eng.StopWhenClear = cfg.StopWhenClear
	eng.Distancing = cfg.Policy()
	eng.Interval = interval

	// ── Run Recorder ──────────────────────────────────────────────────
	var (
		db    *persistence.DB
		runID string
	)
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runID, err = db.StartRun(sim, cfg.Engine())
		if err != nil {
			return err
		}
		slog.Info("recording run", "path", cfg.DBPath, "run_id", runID)

		eng.OnStep = func(rec engine.StatsRecord) {
			if err := db.RecordStats(runID, rec); err != nil {
				slog.Error("stats record failed", "tick", rec.Tick, "error", err)
			}
		}
		eng.OnIntervention = func(iv engine.Intervention) {
			if err := db.RecordIntervention(runID, iv); err != nil {
				slog.Error("intervention record failed", "tick", iv.Tick, "error", err)
			}
		}
	}

	// ── Engine + API ──────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := eng.Run(gCtx); err != nil {
			return err
		}
		summarize(eng)
		if cfg.API.Port > 0 && gCtx.Err() == nil {
			slog.Info("run complete, API still serving (Ctrl-C to exit)")
		}
		return nil
	})

	if cfg.API.Port > 0 {
		srv := &api.Server{
			Eng:      eng,
			DB:       db,
			RunID:    runID,
			Port:     cfg.API.Port,
			AdminKey: cfg.API.AdminKey,
		}
		g.Go(func() error {
			return srv.Start(gCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func summarize(eng *engine.Engine) {
	eng.View(func(sim *engine.Simulation) {
		rec, ok := sim.Latest()
		if !ok {
			return
		}
		attrs := []any{
			"tick", rec.Tick,
			"population", humanize.Comma(int64(sim.Population())),
			"cumulative_infected", humanize.Comma(int64(rec.CumulativeInfected)),
			"attack_rate", fmt.Sprintf("%.1f%%", 100*float64(rec.CumulativeInfected)/float64(sim.Population())),
			"policy", sim.State.String(),
		}
		if sim.DistancingTick != nil {
			attrs = append(attrs, "distancing_tick", *sim.DistancingTick)
		}
		slog.Info("run summary", attrs...)
	})
}

func printProfiles(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-11s %6s %6s %6s %6s\n", "profile", "period", "mean", "median", "p05", "p95")

	for _, name := range config.Profiles() {
		if name == engine.DwellFixed {
			fixed := epidemic.DefaultFixedDwell()
			for _, row := range []struct {
				period string
				n      int
			}{{"latent", fixed.Latent}, {"infectious", fixed.Infectious}} {
				fmt.Fprintf(out, "%-10s %-11s %6d %6d %6d %6d\n", name, row.period, row.n, row.n, row.n, row.n)
			}
			continue
		}

		d, err := distributions.New(name, entropy.NewRand(1))
		if err != nil {
			return err
		}
		latent, infectious := d.Summarize()
		for _, row := range []struct {
			period string
			s      distributions.Summary
		}{{"latent", latent}, {"infectious", infectious}} {
			fmt.Fprintf(out, "%-10s %-11s %6.2f %6.2f %6.2f %6.2f\n",
				d.Name, row.period, row.s.Mean, row.s.Median, row.s.P05, row.s.P95)
		}
	}
	return nil
}
