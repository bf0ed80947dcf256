package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/ryabich/flarecloud/internal/activity"
	"github.com/ryabich/flarecloud/internal/challenge"
	"github.com/ryabich/flarecloud/internal/config"
	"github.com/ryabich/flarecloud/internal/core"
	"github.com/ryabich/flarecloud/internal/db"
	"github.com/ryabich/flarecloud/internal/logging"
	"github.com/ryabich/flarecloud/internal/metrics"
	"github.com/ryabich/flarecloud/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool)

	bridge, err := challenge.NewRedisBridge(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer bridge.Close()

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, core.TaskQueue, worker.Options{})

	// Register activities
	certDBActivities := activity.NewCertDB(corePool)
	w.RegisterActivity(certDBActivities)

	acmeActivities := activity.NewACME(cfg.ACMEEmail, cfg.ACMEDirectoryURL, cfg.ACMEAccountKeyPath, bridge)
	w.RegisterActivity(acmeActivities)

	// Register workflows
	w.RegisterWorkflow(workflow.IssueCertificateWorkflow)
	w.RegisterWorkflow(workflow.RenewDueCertificatesWorkflow)
	w.RegisterWorkflow(workflow.ReapStuckOrdersWorkflow)
	w.RegisterWorkflow(workflow.SweepExpiredCertificatesWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", core.TaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       "cert-renewal-cron",
			cron:     "0 2 * * *",
			workflow: workflow.RenewDueCertificatesWorkflow,
		},
		{
			id:       "cert-reaper-cron",
			cron:     "*/5 * * * *",
			workflow: workflow.ReapStuckOrdersWorkflow,
		},
		{
			id:       "cert-sweep-cron",
			cron:     "0 3 * * *",
			workflow: workflow.SweepExpiredCertificatesWorkflow,
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				TaskQueue: core.TaskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
