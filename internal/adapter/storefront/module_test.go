package storefront

import (
	"io"
	"log/slog"
	"testing"

	"github.com/avolkhin/shipstream/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{StorefrontAddress: "http://example.com"}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	client, err := newClient(clientParams{Config: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client instance")
	}

	cfg.StorefrontAddress = "/relative"
	if _, err := newClient(clientParams{Config: cfg, Logger: logger}); err == nil {
		t.Fatal("expected error for relative url")
	}
}
