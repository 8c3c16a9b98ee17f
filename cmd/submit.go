package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/review-impact/impact-sim/service"
)

var (
	submitWait      time.Duration // How long to wait for the report; 0 returns after queueing
	submitList      string        // Request list
	reportList      string        // Report list
	submitRedisAddr string        // Redis address
)

// submitCmd queues a change request on the Redis bus
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue a change request on the Redis request bus",
	Run: func(cmd *cobra.Command, args []string) {
		if requestPath == "" {
			logrus.Fatalf("No change request provided (--request)")
		}
		req, err := loadChangeRequest(requestPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := req.Validate(); err != nil {
			logrus.Fatalf("%v", err)
		}

		ctx := context.Background()
		client := redis.NewClient(&redis.Options{Addr: submitRedisAddr})
		defer func() { _ = client.Close() }()

		if submitWait <= 0 {
			id, err := service.Submit(ctx, client, submitList, req)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Queued change request %s on %s", id, submitList)
			return
		}

		id, replyList, err := service.SubmitForReply(ctx, client, submitList, reportList, req)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Queued change request %s on %s, awaiting report on %s", id, submitList, replyList)
		env, err := service.AwaitReport(ctx, client, replyList, submitWait)
		if errors.Is(err, redis.Nil) {
			logrus.Fatalf("No report for %s within %s", id, submitWait)
		}
		if err != nil {
			logrus.Fatalf("Waiting for report %s: %v", id, err)
		}
		if err := writeReport(os.Stdout, env.Report, outputFormat); err != nil {
			logrus.Fatalf("Writing report: %v", err)
		}
		if !env.Report.OK() {
			os.Exit(2)
		}
	},
}

func init() {
	submitCmd.Flags().StringVar(&requestPath, "request", "", "Change request file (YAML or JSON)")
	submitCmd.Flags().StringVar(&submitRedisAddr, "redis-addr", "localhost:6379", "Redis address")
	submitCmd.Flags().StringVar(&submitList, "request-list", service.DefaultRequestList, "Redis list to push the request onto")
	submitCmd.Flags().StringVar(&reportList, "report-list", service.DefaultReportList, "Redis list reports are published on; --wait uses a private list under it")
	submitCmd.Flags().DurationVar(&submitWait, "wait", 0, "Wait this long for the report and print it")
	submitCmd.Flags().StringVar(&outputFormat, "output", "table", "Report format: table or json")

	rootCmd.AddCommand(submitCmd)
}
