package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/avolkhin/shipstream/internal/config"
	"github.com/avolkhin/shipstream/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewFulfillmentFacade,
		newHTTPServer,
		newRetrySubmitter,
		newFallbackAdvancer,
		newTrackingReconciler,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Facade *FulfillmentFacade
	Config *config.Config
	Logger *slog.Logger
}

func newRetrySubmitter(p workerParams) *worker.RetrySubmitter {
	return worker.NewRetrySubmitter(
		p.Facade,
		p.Config.RetryInterval,
		p.Config.PollBatchSize,
		p.Config.WorkerPoolSize,
		p.Config.MaxRetries,
		p.Logger,
	)
}

func newFallbackAdvancer(p workerParams) *worker.FallbackAdvancer {
	return worker.NewFallbackAdvancer(
		p.Facade,
		p.Config.FallbackInterval,
		p.Config.PollBatchSize,
		p.Logger,
	)
}

func newTrackingReconciler(p workerParams) *worker.TrackingReconciler {
	return worker.NewTrackingReconciler(
		p.Facade,
		p.Config.TrackingInterval,
		p.Config.PollBatchSize,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Retry      *worker.RetrySubmitter
	Fallback   *worker.FallbackAdvancer
	Tracking   *worker.TrackingReconciler
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting shipstream", slog.String("addr", p.Server.Addr))
			p.Retry.Start(ctx)
			p.Fallback.Start(ctx)
			p.Tracking.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Tracking.Stop()
			p.Fallback.Stop()
			p.Retry.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("shipstream stopped")
			return nil
		},
	})
}
