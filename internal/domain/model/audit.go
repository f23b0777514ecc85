package model

import "time"

// AuditEvent is an append-only trail entry for a fulfillment order.
type AuditEvent struct {
	ID        string
	OrderID   int64
	Event     string
	Detail    string
	CreatedAt time.Time
}

// Audit event names written by the core.
const (
	AuditCreated          = "created"
	AuditSubmitted        = "submitted"
	AuditSubmissionFailed = "submission_failed"
	AuditProfitBlocked    = "profit_blocked"
	AuditEscalated        = "escalated"
	AuditFallbackOrdered  = "fallback_ordered"
	AuditFallbackShipped  = "fallback_shipped"
	AuditTrackingUpdate   = "tracking_update"
	AuditStorefrontNotify = "storefront_notified"
	AuditAdminAction      = "admin_action"
)
