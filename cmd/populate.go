package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/sim/workload"
	"github.com/review-impact/impact-sim/store"
)

var (
	trafficSpecPath string // Traffic spec YAML
	populateSeed    int64  // Overrides the spec seed when set
	populateOut     string // Fixture output path
	skipMigrations  bool   // Assume the schema already exists
)

// populateCmd generates a synthetic review history
var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Generate synthetic historical traffic into a fixture or PostgreSQL",
	Run: func(cmd *cobra.Command, args []string) {
		if populateOut == "" && postgresDSN == "" {
			logrus.Fatalf("Nowhere to write: set --out and/or --postgres-dsn")
		}
		spec, err := loadTrafficSpec(trafficSpecPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if cmd.Flags().Changed("seed") {
			spec.Seed = populateSeed
		}

		snap, err := workload.GenerateTraffic(spec)
		if err != nil {
			logrus.Fatalf("Generating traffic: %v", err)
		}

		if populateOut != "" {
			if err := store.WriteFixture(populateOut, snap); err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Wrote fixture %s", populateOut)
		}
		if postgresDSN != "" {
			if err := populatePostgres(context.Background(), postgresDSN, snap, !skipMigrations); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		logrus.Info("Population complete.")
	},
}

func loadTrafficSpec(path string) (*workload.TrafficSpec, error) {
	if path == "" {
		spec := workload.DefaultTrafficSpec()
		return &spec, nil
	}
	return workload.LoadTrafficSpec(path)
}

func populatePostgres(ctx context.Context, dsn string, snap *sim.Snapshot, migrate bool) error {
	pg, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = pg.Close() }()
	if migrate {
		if err := pg.RunMigrations(ctx); err != nil {
			return err
		}
	}
	if err := pg.ReplaceSnapshot(ctx, snap); err != nil {
		return err
	}
	logrus.Infof("Loaded %d lifecycles into PostgreSQL", len(snap.EnqueueSignals))
	return nil
}

func init() {
	populateCmd.Flags().StringVar(&trafficSpecPath, "spec", "", "Traffic spec YAML (defaults apply when empty)")
	populateCmd.Flags().Int64Var(&populateSeed, "seed", 42, "Seed for traffic generation (overrides the spec)")
	populateCmd.Flags().StringVar(&populateOut, "out", "", "Write the generated snapshot as a YAML fixture")
	populateCmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "Bulk load the generated snapshot into PostgreSQL")
	populateCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply schema migrations before loading")

	rootCmd.AddCommand(populateCmd)
}
