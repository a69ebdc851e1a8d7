package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the reminder scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	a, err := newApp(parent)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	appCtx, cancel := a.lifecycle.NotifyContext(parent)
	defer cancel()

	if err := a.alarms.Start(appCtx); err != nil {
		a.shutdown()
		return err
	}
	a.lifecycle.Register("alarm_manager", a.alarms.Stop)

	a.reconciler.Start()
	a.lifecycle.Register("reconciler", func(ctx context.Context) error {
		a.reconciler.Stop(ctx)
		return nil
	})

	r := router.New(a.handlers, a.authMiddleware, router.Options{EnableMetrics: a.cfg.HTTP.EnableMetrics})
	server := &fasthttp.Server{
		Handler:      router.Handler(r),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
		Name:         a.cfg.AppName,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server started", zap.String("address", a.cfg.Address()))
		serveErr <- server.ListenAndServe(a.cfg.Address())
	}()

	a.lifecycle.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	var runErr error
	select {
	case <-appCtx.Done():
	case err := <-serveErr:
		if err != nil {
			a.logger.Error("server crashed", zap.Error(err))
			runErr = err
		}
	}

	if err := a.shutdown(); err != nil {
		a.logger.Error("graceful shutdown error", zap.Error(err))
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
