package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkhin/shipstream/internal/config"
	testhelpers "github.com/avolkhin/shipstream/internal/test"
	"github.com/avolkhin/shipstream/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestWorkers() (*worker.RetrySubmitter, *worker.FallbackAdvancer, *worker.TrackingReconciler) {
	logger := testLogger()
	retry := worker.NewRetrySubmitter(&testhelpers.SubmissionFacadeStub{}, 10*time.Millisecond, 1, 1, 3, logger)
	fallback := worker.NewFallbackAdvancer(&testhelpers.FallbackFacadeStub{}, 10*time.Millisecond, 1, logger)
	tracking := worker.NewTrackingReconciler(&testhelpers.TrackingFacadeStub{}, 10*time.Millisecond, 1, 1, logger)
	return retry, fallback, tracking
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestWorkerConstructorsUseConfig(t *testing.T) {
	params := workerParams{
		Facade: &FulfillmentFacade{},
		Config: &config.Config{
			RetryInterval:    15 * time.Second,
			FallbackInterval: 20 * time.Second,
			TrackingInterval: 25 * time.Second,
			PollBatchSize:    3,
			WorkerPoolSize:   4,
			MaxRetries:       5,
		},
		Logger: testLogger(),
	}
	if newRetrySubmitter(params) == nil {
		t.Fatal("expected retry submitter instance")
	}
	if newFallbackAdvancer(params) == nil {
		t.Fatal("expected fallback advancer instance")
	}
	if newTrackingReconciler(params) == nil {
		t.Fatal("expected tracking reconciler instance")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	retry, fallback, tracking := newTestWorkers()
	cfg := &config.Config{ShutdownTimeout: 100 * time.Millisecond}

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     testLogger(),
		Server:     server,
		Retry:      retry,
		Fallback:   fallback,
		Tracking:   tracking,
		Config:     cfg,
	})

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}

	hook := recorder.Hooks[0]
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hook.OnStart(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hook.OnStop(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	server := &http.Server{Addr: "bad addr"}
	retry, fallback, tracking := newTestWorkers()

	registerLifecycle(lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     testLogger(),
		Server:     server,
		Retry:      retry,
		Fallback:   fallback,
		Tracking:   tracking,
		Config:     &config.Config{ShutdownTimeout: time.Second},
	})

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = hook.OnStop(context.Background())
}
