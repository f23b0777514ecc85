package repository

import (
	"context"

	"github.com/avolkhin/shipstream/internal/domain/model"
)

// AuditRepository appends and lists the per-record audit trail.
type AuditRepository interface {
	Append(ctx context.Context, orderID int64, event, detail string) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.AuditEvent, error)
}
