package cmd

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/review-impact/impact-sim/sim/impact"
	"github.com/review-impact/impact-sim/store"
)

var (
	logLevel string // Log verbosity level

	// Data source flags, shared by run and serve
	fixturePath string // YAML snapshot file
	postgresDSN string // PostgreSQL connection string; wins over the fixture

	// Simulation knobs, shared by run and serve
	reviewMinutes     int           // Fixed review duration in minutes
	reviewersPerQueue int           // Reviewers staffed in every queue
	priorityOrder     string        // Enqueue rule evaluation order
	maxEvents         int           // Event budget before giving up
	horizon           time.Duration // Simulated time budget per lifecycle past its enqueue
	traceLevel        string        // Decision trace verbosity

	// run-only flags
	requestPath  string // Change request file
	outputFormat string // table or json
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "impact-sim",
	Short: "Projects the SLA impact of content-review configuration changes",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd evaluates one change request and prints its impact report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one change request against the baseline",
	Run: func(cmd *cobra.Command, args []string) {
		if requestPath == "" {
			logrus.Fatalf("No change request provided (--request)")
		}
		req, err := loadChangeRequest(requestPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		simCfg := defaultSimulationConfig()
		applySimulationFlags(cmd, &simCfg)
		cfg, err := simCfg.toSim()
		if err != nil {
			logrus.Fatalf("Invalid simulation config: %v", err)
		}

		ctx := context.Background()
		ds, err := store.Open(ctx, store.Options{FixturePath: fixturePath, PostgresDSN: postgresDSN})
		if err != nil {
			logrus.Fatalf("Opening data source: %v", err)
		}
		defer func() { _ = ds.Close() }()

		startTime := time.Now()
		report := impact.Analyze(ctx, ds, req, cfg)
		logrus.Infof("Analysis finished in %s with status %s", time.Since(startTime).Round(time.Millisecond), report.Status)

		if err := writeReport(os.Stdout, report, outputFormat); err != nil {
			logrus.Fatalf("Writing report: %v", err)
		}
		if !report.OK() {
			os.Exit(2)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addDataSourceFlags registers the data source flags on c.
func addDataSourceFlags(c *cobra.Command) {
	c.Flags().StringVar(&fixturePath, "fixture", "", "YAML snapshot to use as the baseline")
	c.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL DSN to load the baseline from (overrides --fixture)")
}

// addSimulationFlags registers the simulation knobs on c. Defaults mirror sim.DefaultConfig.
func addSimulationFlags(c *cobra.Command) {
	d := defaultSimulationConfig()
	c.Flags().IntVar(&reviewMinutes, "review-minutes", d.ReviewMinutes, "Minutes every review takes")
	c.Flags().IntVar(&reviewersPerQueue, "reviewers", d.ReviewersPerQueue, "Reviewers staffed in every queue")
	c.Flags().StringVar(&priorityOrder, "priority-order", d.PriorityOrder, "Enqueue rule order: ascending (lowest priority value wins) or descending")
	c.Flags().IntVar(&maxEvents, "max-events", d.MaxEvents, "Events processed before the run is declared non-converging")
	c.Flags().DurationVar(&horizon, "horizon", d.Horizon, "Simulated time one lifecycle may take past its enqueue (0 disables)")
	c.Flags().StringVar(&traceLevel, "trace", d.TraceLevel, "Decision trace level: none or decisions")
}

// applySimulationFlags copies explicitly set flags over cfg. Flags left at their
// default never overwrite values from a config file.
func applySimulationFlags(c *cobra.Command, cfg *SimulationConfig) {
	if c.Flags().Changed("review-minutes") {
		cfg.ReviewMinutes = reviewMinutes
	}
	if c.Flags().Changed("reviewers") {
		cfg.ReviewersPerQueue = reviewersPerQueue
	}
	if c.Flags().Changed("priority-order") {
		cfg.PriorityOrder = priorityOrder
	}
	if c.Flags().Changed("max-events") {
		cfg.MaxEvents = maxEvents
	}
	if c.Flags().Changed("horizon") {
		cfg.Horizon = horizon
	}
	if c.Flags().Changed("trace") {
		cfg.TraceLevel = traceLevel
	}
}

// applyDataSourceFlags copies explicitly set data source flags over opts.
func applyDataSourceFlags(c *cobra.Command, opts *store.Options) {
	if c.Flags().Changed("fixture") {
		opts.FixturePath = fixturePath
	}
	if c.Flags().Changed("postgres-dsn") {
		opts.PostgresDSN = postgresDSN
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	addDataSourceFlags(runCmd)
	addSimulationFlags(runCmd)
	runCmd.Flags().StringVar(&requestPath, "request", "", "Change request file (YAML or JSON)")
	runCmd.Flags().StringVar(&outputFormat, "output", "table", "Report format: table or json")

	rootCmd.AddCommand(runCmd)
}
