package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// Pool is the subset of pgxpool.Pool the storage relies on; pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   Pool
	logger *slog.Logger
}

type fulfillmentRepository struct {
	storage *Storage
}

type mappingRepository struct {
	storage *Storage
}

type auditRepository struct {
	storage *Storage
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (Pool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Fulfillments() repository.FulfillmentRepository {
	return &fulfillmentRepository{storage: s}
}

func (s *Storage) VariantMappings() repository.VariantMappingRepository {
	return &mappingRepository{storage: s}
}

func (s *Storage) Audit() repository.AuditRepository {
	return &auditRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS fulfillment_orders (
            id BIGSERIAL PRIMARY KEY,
            sale_id TEXT NOT NULL,
            line_item_id TEXT NOT NULL,
            sku TEXT NOT NULL DEFAULT '',
            quantity INT NOT NULL DEFAULT 1,
            supplier TEXT NOT NULL,
            status TEXT NOT NULL,
            supplier_order_id TEXT,
            tracking_number TEXT,
            carrier TEXT,
            storefront_fulfillment_id TEXT,
            sale_price DOUBLE PRECISION NOT NULL,
            supplier_cost DOUBLE PRECISION,
            shipping_cost DOUBLE PRECISION,
            profit DOUBLE PRECISION,
            retry_count INT NOT NULL DEFAULT 0,
            last_retry_error TEXT,
            last_retry_at TIMESTAMPTZ,
            blocked_reason TEXT,
            fallback_provider TEXT,
            fallback_from TEXT,
            fallback_reason TEXT,
            fallback_at TIMESTAMPTZ,
            locked_until TIMESTAMPTZ,
            recipient_name TEXT NOT NULL DEFAULT '',
            recipient_address1 TEXT NOT NULL DEFAULT '',
            recipient_address2 TEXT NOT NULL DEFAULT '',
            recipient_city TEXT NOT NULL DEFAULT '',
            recipient_province TEXT NOT NULL DEFAULT '',
            recipient_country TEXT NOT NULL DEFAULT '',
            recipient_zip TEXT NOT NULL DEFAULT '',
            recipient_phone TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (sale_id, line_item_id)
        )`,
		`CREATE TABLE IF NOT EXISTS variant_mappings (
            id BIGSERIAL PRIMARY KEY,
            sku TEXT UNIQUE NOT NULL,
            source TEXT NOT NULL,
            supplier_product_id TEXT NOT NULL DEFAULT '',
            supplier_variant_id TEXT NOT NULL DEFAULT '',
            deleted BOOLEAN NOT NULL DEFAULT FALSE
        )`,
		`CREATE TABLE IF NOT EXISTS fulfillment_events (
            id UUID PRIMARY KEY,
            fulfillment_order_id BIGINT NOT NULL REFERENCES fulfillment_orders(id),
            event TEXT NOT NULL,
            detail TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_fulfillment_orders_retry ON fulfillment_orders(supplier, status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_fulfillment_events_order ON fulfillment_events(fulfillment_order_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

const fulfillmentColumns = `id, sale_id, line_item_id, sku, quantity, supplier, status,
           supplier_order_id, tracking_number, carrier, storefront_fulfillment_id,
           sale_price, supplier_cost, shipping_cost, profit,
           retry_count, last_retry_error, last_retry_at, blocked_reason,
           fallback_provider, fallback_from, fallback_reason, fallback_at, locked_until,
           recipient_name, recipient_address1, recipient_address2, recipient_city,
           recipient_province, recipient_country, recipient_zip, recipient_phone,
           created_at, updated_at`

func scanFulfillment(row pgx.Row) (*model.FulfillmentOrder, error) {
	var (
		o          model.FulfillmentOrder
		lastErr    *string
		lastAt     *time.Time
		blocked    *string
		fbProvider *string
		fbFrom     *string
		fbReason   *string
		fbAt       *time.Time
	)

	err := row.Scan(
		&o.ID, &o.SaleID, &o.LineItemID, &o.SKU, &o.Quantity, &o.Supplier, &o.Status,
		&o.SupplierOrderID, &o.TrackingNumber, &o.Carrier, &o.StorefrontFulfillmentID,
		&o.SalePrice, &o.SupplierCost, &o.ShippingCost, &o.Profit,
		&o.Retry.Count, &lastErr, &lastAt, &blocked,
		&fbProvider, &fbFrom, &fbReason, &fbAt, &o.LockedUntil,
		&o.Recipient.Name, &o.Recipient.Address1, &o.Recipient.Address2, &o.Recipient.City,
		&o.Recipient.Province, &o.Recipient.Country, &o.Recipient.Zip, &o.Recipient.Phone,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastErr != nil {
		o.Retry.LastError = *lastErr
	}
	o.Retry.LastAt = lastAt
	if blocked != nil {
		reason := model.BlockReason(*blocked)
		o.BlockReason = &reason
	}
	if fbProvider != nil {
		info := model.FallbackInfo{Provider: model.Supplier(*fbProvider)}
		if fbFrom != nil {
			info.From = model.Supplier(*fbFrom)
		}
		if fbReason != nil {
			info.Reason = *fbReason
		}
		if fbAt != nil {
			info.At = *fbAt
		}
		o.Fallback = &info
	}

	return &o, nil
}

func (s *Storage) queryFulfillments(ctx context.Context, query string, args ...any) ([]model.FulfillmentOrder, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.FulfillmentOrder
	for rows.Next() {
		o, err := scanFulfillment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- FulfillmentRepository implementation ---

func (r *fulfillmentRepository) Create(ctx context.Context, params repository.CreateFulfillmentParams) (*model.FulfillmentOrder, bool, error) {
	insertQuery := `INSERT INTO fulfillment_orders
           (sale_id, line_item_id, sku, quantity, supplier, status, sale_price,
            fallback_provider, fallback_from, fallback_reason, fallback_at,
            recipient_name, recipient_address1, recipient_address2, recipient_city,
            recipient_province, recipient_country, recipient_zip, recipient_phone)
           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
           ON CONFLICT (sale_id, line_item_id) DO NOTHING
           RETURNING ` + fulfillmentColumns

	var (
		fbProvider *string
		fbFrom     *string
		fbReason   *string
		fbAt       *time.Time
	)
	if params.Fallback != nil {
		provider := string(params.Fallback.Provider)
		fbProvider = &provider
		if params.Fallback.From != "" {
			from := string(params.Fallback.From)
			fbFrom = &from
		}
		if params.Fallback.Reason != "" {
			reason := params.Fallback.Reason
			fbReason = &reason
		}
		at := params.Fallback.At
		fbAt = &at
	}

	var (
		record *model.FulfillmentOrder
		isNew  bool
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, insertQuery,
			params.SaleID, params.LineItemID, params.SKU, params.Quantity,
			string(params.Supplier), string(model.StatusPending), params.SalePrice,
			fbProvider, fbFrom, fbReason, fbAt,
			params.Recipient.Name, params.Recipient.Address1, params.Recipient.Address2,
			params.Recipient.City, params.Recipient.Province, params.Recipient.Country,
			params.Recipient.Zip, params.Recipient.Phone,
		)

		o, err := scanFulfillment(row)
		if err == nil {
			record = o
			isNew = true
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		existingQuery := `SELECT ` + fulfillmentColumns + `
               FROM fulfillment_orders WHERE sale_id=$1 AND line_item_id=$2`
		existing, err := scanFulfillment(tx.QueryRow(ctx, existingQuery, params.SaleID, params.LineItemID))
		if err != nil {
			return err
		}
		record = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return record, isNew, nil
}

func (r *fulfillmentRepository) GetByID(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + ` FROM fulfillment_orders WHERE id=$1`
	o, err := scanFulfillment(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *fulfillmentRepository) List(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + `
               FROM fulfillment_orders ORDER BY created_at DESC LIMIT $1`
	return r.storage.queryFulfillments(ctx, query, limit)
}

func (r *fulfillmentRepository) CandidatesForRetry(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + `
               FROM fulfillment_orders
               WHERE supplier='primary'
                 AND status IN ('pending', 'failed')
                 AND supplier_order_id IS NULL
                 AND fallback_provider IS NULL
                 AND (locked_until IS NULL OR locked_until < NOW())
               ORDER BY created_at
               LIMIT $1`
	return r.storage.queryFulfillments(ctx, query, limit)
}

func (r *fulfillmentRepository) PendingFallback(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + `
               FROM fulfillment_orders
               WHERE supplier='fallback'
                 AND status='pending'
                 AND fallback_provider IS NOT NULL
                 AND (locked_until IS NULL OR locked_until < NOW())
               ORDER BY created_at
               LIMIT $1`
	return r.storage.queryFulfillments(ctx, query, limit)
}

func (r *fulfillmentRepository) Trackable(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	query := `SELECT ` + fulfillmentColumns + `
               FROM fulfillment_orders
               WHERE tracking_number IS NOT NULL
                 AND status NOT IN ('delivered', 'cancelled', 'returned')
               ORDER BY updated_at
               LIMIT $1`
	return r.storage.queryFulfillments(ctx, query, limit)
}

func (r *fulfillmentRepository) CommitSubmission(ctx context.Context, id int64, supplierOrderID string, supplierCost, shippingCost, profit float64) error {
	const query = `UPDATE fulfillment_orders
                   SET supplier_order_id=$2, supplier_cost=$3, shipping_cost=$4, profit=$5,
                       status='ordered', blocked_reason=NULL, updated_at=NOW()
                   WHERE id=$1 AND supplier_order_id IS NULL AND status IN ('pending', 'failed')`
	tag, err := r.storage.pool.Exec(ctx, query, id, supplierOrderID, supplierCost, shippingCost, profit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAlreadySubmitted
	}
	return nil
}

func (r *fulfillmentRepository) RecordFailure(ctx context.Context, id int64, message string) error {
	const query = `UPDATE fulfillment_orders
                   SET status='failed', retry_count=retry_count+1,
                       last_retry_error=$2, last_retry_at=NOW(), updated_at=NOW()
                   WHERE id=$1 AND status IN ('pending', 'failed')`
	tag, err := r.storage.pool.Exec(ctx, query, id, truncate(message, 500))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInvalidTransition
	}
	return nil
}

func (r *fulfillmentRepository) RecordProfitBlock(ctx context.Context, id int64, supplierCost, shippingCost, profit float64) error {
	const query = `UPDATE fulfillment_orders
                   SET status='failed', supplier_cost=$2, shipping_cost=$3, profit=$4,
                       blocked_reason=$5, updated_at=NOW()
                   WHERE id=$1 AND supplier_order_id IS NULL AND status IN ('pending', 'failed')`
	tag, err := r.storage.pool.Exec(ctx, query, id, supplierCost, shippingCost, profit, string(model.BlockNegativeProfit))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInvalidTransition
	}
	return nil
}

func (r *fulfillmentRepository) Escalate(ctx context.Context, id int64, info model.FallbackInfo) error {
	const query = `UPDATE fulfillment_orders
                   SET supplier=$2, status='pending',
                       fallback_provider=$2, fallback_from=$3, fallback_reason=$4, fallback_at=$5,
                       updated_at=NOW()
                   WHERE id=$1
                     AND supplier='primary'
                     AND fallback_provider IS NULL
                     AND supplier_order_id IS NULL
                     AND status NOT IN ('delivered', 'cancelled', 'returned')`
	tag, err := r.storage.pool.Exec(ctx, query, id,
		string(info.Provider), string(info.From), info.Reason, info.At)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAlreadyEscalated
	}
	return nil
}

func (r *fulfillmentRepository) Transition(ctx context.Context, id int64, from, to model.Status) error {
	const query = `UPDATE fulfillment_orders SET status=$3, updated_at=NOW()
                   WHERE id=$1 AND status=$2`
	tag, err := r.storage.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInvalidTransition
	}
	return nil
}

func (r *fulfillmentRepository) MarkShipped(ctx context.Context, id int64, trackingNumber, carrier string) error {
	const query = `UPDATE fulfillment_orders
                   SET status='shipped', tracking_number=$2, carrier=$3, updated_at=NOW()
                   WHERE id=$1 AND status='ordered'`
	tag, err := r.storage.pool.Exec(ctx, query, id, trackingNumber, carrier)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInvalidTransition
	}
	return nil
}

func (r *fulfillmentRepository) SetStorefrontFulfillment(ctx context.Context, id int64, fulfillmentID string) (bool, error) {
	const query = `UPDATE fulfillment_orders
                   SET storefront_fulfillment_id=$2, updated_at=NOW()
                   WHERE id=$1 AND storefront_fulfillment_id IS NULL`
	tag, err := r.storage.pool.Exec(ctx, query, id, fulfillmentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *fulfillmentRepository) AcquireLock(ctx context.Context, id int64, ttl time.Duration) error {
	const query = `UPDATE fulfillment_orders
                   SET locked_until = NOW() + make_interval(secs => $2)
                   WHERE id=$1 AND (locked_until IS NULL OR locked_until < NOW())`
	tag, err := r.storage.pool.Exec(ctx, query, id, ttl.Seconds())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrLockHeld
	}
	return nil
}

func (r *fulfillmentRepository) ReleaseLock(ctx context.Context, id int64) error {
	const query = `UPDATE fulfillment_orders SET locked_until=NULL WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, id)
	return err
}

func (r *fulfillmentRepository) Summary(ctx context.Context) (*model.FulfillmentSummary, error) {
	const query = `SELECT status, COUNT(*), COALESCE(SUM(profit), 0)
                   FROM fulfillment_orders GROUP BY status`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &model.FulfillmentSummary{ByStatus: make(map[model.Status]int64)}
	for rows.Next() {
		var (
			status model.Status
			count  int64
			profit float64
		)
		if err := rows.Scan(&status, &count, &profit); err != nil {
			return nil, err
		}
		summary.ByStatus[status] = count
		summary.Total += count
		summary.TotalProfit += profit
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summary, nil
}

// --- VariantMappingRepository implementation ---

func (r *mappingRepository) GetBySKU(ctx context.Context, sku string) (*model.VariantMapping, error) {
	const query = `SELECT id, sku, source, supplier_product_id, supplier_variant_id, deleted
                   FROM variant_mappings WHERE sku=$1 AND deleted=FALSE`
	var m model.VariantMapping
	err := r.storage.pool.QueryRow(ctx, query, sku).Scan(
		&m.ID, &m.SKU, &m.Source, &m.SupplierProductID, &m.SupplierVariantID, &m.Deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// --- AuditRepository implementation ---

func (r *auditRepository) Append(ctx context.Context, orderID int64, event, detail string) error {
	const query = `INSERT INTO fulfillment_events (id, fulfillment_order_id, event, detail)
                   VALUES ($1, $2, $3, $4)`
	_, err := r.storage.pool.Exec(ctx, query, uuid.NewString(), orderID, event, truncate(detail, 500))
	return err
}

func (r *auditRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.AuditEvent, error) {
	const query = `SELECT id, fulfillment_order_id, event, detail, created_at
                   FROM fulfillment_events WHERE fulfillment_order_id=$1 ORDER BY created_at`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Event, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Pool exposes raw connection pool for advanced use.
func (s *Storage) Pool() Pool {
	return s.pool
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
