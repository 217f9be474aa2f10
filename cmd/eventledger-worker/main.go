package main

import (
	"context"
	"errors"
	"os"
	"time"

	"eventledger/internal/cli"
	applog "eventledger/internal/log"
	"eventledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info("Starting eventledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.RemoteEnabled() {
		logger.Error("The worker needs a remote backend, set REMOTE_BACKEND",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", applog.FieldError, err)
		os.Exit(1)
	}

	// A nil client must stay a nil interface.
	var sub worker.Subscriber
	if app.AMQP != nil {
		sub = app.AMQP
	} else {
		logger.Info("AMQP disabled, relying on periodic pulls only")
	}

	w := worker.NewPullWorker(app.Ledger, sub, worker.Config{
		DeviceID:     cfg.DeviceID,
		PullInterval: cfg.PullInterval,
	}, logger)

	err = w.Run(ctx)
	if ctx.Err() == nil {
		// The worker stopped on its own.
		logger.Error("Worker stopped unexpectedly", applog.FieldError, err)
		_ = app.Close()
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker finished with error", applog.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	if err := app.Close(); err != nil {
		logger.Error("Failed to release resources", applog.FieldError, err)
	}
}
