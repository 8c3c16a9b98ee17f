package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/review-impact/impact-sim/service"
	"github.com/review-impact/impact-sim/store"
)

var (
	serviceConfigPath string // Service YAML file
	httpAddr          string // HTTP listen address
	redisAddr         string // Redis address; empty disables the bus listener
)

// serveCmd runs the HTTP API and, when Redis is configured, the request bus listener
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer change requests over HTTP and the Redis request bus",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadServiceConfig(serviceConfigPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		applySimulationFlags(cmd, &cfg.Simulation)
		applyDataSourceFlags(cmd, &cfg.DataSource)
		if cmd.Flags().Changed("http-addr") {
			cfg.HTTPAddr = httpAddr
		}
		if cmd.Flags().Changed("redis-addr") {
			cfg.Redis.Addr = redisAddr
		}
		simCfg, err := cfg.Simulation.toSim()
		if err != nil {
			logrus.Fatalf("Invalid simulation config: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ds, err := store.Open(ctx, cfg.DataSource)
		if err != nil {
			logrus.Fatalf("Opening data source: %v", err)
		}
		defer func() { _ = ds.Close() }()

		metrics := service.NewMetrics()
		analyzer := service.NewAnalyzer(ds, simCfg, metrics)

		var bus *redis.Client
		if cfg.Redis.Addr != "" {
			bus = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer func() { _ = bus.Close() }()
			if err := bus.Ping(ctx).Err(); err != nil {
				logrus.Fatalf("Connecting to Redis at %s: %v", cfg.Redis.Addr, err)
			}
		}

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           service.NewServer(analyzer, metrics, bus, cfg.Bus.RequestList).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logrus.Infof("HTTP API listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if bus != nil {
			listener := service.NewListener(bus, analyzer, metrics, cfg.Bus)
			g.Go(func() error { return listener.Run(gctx) })
		}

		if err := g.Wait(); err != nil {
			logrus.Fatalf("Service stopped: %v", err)
		}
		logrus.Info("Service stopped.")
	},
}

func init() {
	serveCmd.Flags().StringVar(&serviceConfigPath, "config", "", "Service YAML config")
	serveCmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for the request bus (empty disables it)")
	addDataSourceFlags(serveCmd)
	addSimulationFlags(serveCmd)

	rootCmd.AddCommand(serveCmd)
}
