package logger

import (
	"log/slog"
	"os"
)

// New creates the JSON logger shared by every component. The service
// attribute keys aggregated log searches across deployments.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With(slog.String("service", "shipstream"))
}
