package test

import (
	"go.uber.org/fx"
)

// LifecycleRecorder collects the hooks the application registers so tests
// can fire OnStart/OnStop by hand.
type LifecycleRecorder struct {
	Hooks []fx.Hook
}

// Append stores a hook for manual invocation.
func (l *LifecycleRecorder) Append(h fx.Hook) {
	l.Hooks = append(l.Hooks, h)
}

// ShutdownerStub signals on Called when the server loop requests shutdown.
type ShutdownerStub struct {
	Called chan struct{}
}

// Shutdown records the request without stopping anything.
func (s *ShutdownerStub) Shutdown(...fx.ShutdownOption) error {
	if s.Called == nil {
		return nil
	}
	select {
	case s.Called <- struct{}{}:
	default:
	}
	return nil
}
