package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Decision is what the reconciler wants persisted for one event, computed from the
// locked current record inside the repository transaction.
type Decision struct {
	Outcome model.Outcome
	// Next is written when non-nil.
	Next *model.SubscriptionRecord
	// Order is inserted when non-nil, unless one already exists for its idempotence key.
	Order *model.Order
}

// DecideFunc computes a Decision from the current record, which is nil when the user has none.
type DecideFunc func(current *model.SubscriptionRecord) (Decision, error)

// ReconcileResult reports what a Reconcile call persisted.
type ReconcileResult struct {
	Outcome model.Outcome
	Record  *model.SubscriptionRecord
	// Order is set only when a new order row was created.
	Order *model.Order
}

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	// GetSubscription returns model.ErrNotFound when the user has no record.
	GetSubscription(ctx context.Context, userID string) (*model.SubscriptionRecord, error)
	// FindUserByCustomerID resolves a provider customer id to a user id.
	FindUserByCustomerID(ctx context.Context, provider model.Provider, customerID string) (string, error)
	// Reconcile logs the event, serializes on the user's record and applies decide's result atomically.
	// A previously seen (provider, event id) pair returns OutcomeDuplicate without calling decide.
	Reconcile(ctx context.Context, entry model.WebhookEventLog, decide DecideFunc) (*ReconcileResult, error)
	// LogEvent records an event that never reached Reconcile.
	LogEvent(ctx context.Context, entry model.WebhookEventLog) error
	// ExpireDue moves active records whose expiry is at or before now to expired and returns their user ids.
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `
	user_id, provider, provider_subscription_id, provider_customer_id, status, plan_id,
	expires_at, cancel_at_period_end, last_event_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.SubscriptionRecord, error) {
	var s model.SubscriptionRecord
	err := row.Scan(
		&s.UserID,
		&s.Provider,
		&s.ProviderSubscriptionID,
		&s.ProviderCustomerID,
		&s.Status,
		&s.PlanID,
		&s.ExpiresAt,
		&s.CancelAtPeriodEnd,
		&s.LastEventAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSubscription returns the user's subscription regardless of status.
func (r *subscriptionRepo) GetSubscription(ctx context.Context, userID string) (*model.SubscriptionRecord, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id = $1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) FindUserByCustomerID(ctx context.Context, provider model.Provider, customerID string) (string, error) {
	const q = `
		SELECT user_id
		FROM user_subscriptions
		WHERE provider = $1 AND provider_customer_id = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var userID string
	err := r.pool.QueryRow(ctx, q, provider, customerID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup user by %s customer %s: %w", provider, customerID, err)
	}
	return userID, nil
}

func (r *subscriptionRepo) Reconcile(ctx context.Context, entry model.WebhookEventLog, decide DecideFunc) (*ReconcileResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("starting transaction for %s event %s: %w", entry.Provider, entry.EventID, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// The partial unique index on (provider, event_id) turns a redelivery into a no-op.
	// Dropped and ignored rows sit outside it so those events can be replayed.
	const logQ = `
		INSERT INTO webhook_events (provider, event_id, event_type, user_id, outcome)
		VALUES ($1, $2, $3, $4, 'processing')
		ON CONFLICT (provider, event_id) WHERE event_id <> '' AND outcome NOT IN ('dropped', 'ignored') DO NOTHING
		RETURNING id
	`
	var logID int64
	err = tx.QueryRow(ctx, logQ, entry.Provider, entry.EventID, entry.ProviderEventType, entry.UserID).Scan(&logID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &ReconcileResult{Outcome: model.OutcomeDuplicate}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logging %s event %s: %w", entry.Provider, entry.EventID, err)
	}

	// Serialize every writer for this user, including the first insert when no row exists yet.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, entry.UserID); err != nil {
		return nil, fmt.Errorf("locking subscription for user %s: %w", entry.UserID, err)
	}
	q := `SELECT ` + subscriptionColumns + ` FROM user_subscriptions WHERE user_id = $1 FOR UPDATE`
	current, err := scanSubscription(tx.QueryRow(ctx, q, entry.UserID))
	if errors.Is(err, pgx.ErrNoRows) {
		current, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", entry.UserID, err)
	}

	decision, err := decide(current.Clone())
	if err != nil {
		return nil, err
	}
	result := &ReconcileResult{Outcome: decision.Outcome, Record: current}

	if decision.Next != nil {
		saved, err := upsertSubscription(ctx, tx, decision.Next)
		if err != nil {
			return nil, err
		}
		result.Record = saved
	}
	if decision.Order != nil {
		created, err := insertOrder(ctx, tx, decision.Order)
		if err != nil {
			return nil, err
		}
		if created {
			result.Order = decision.Order
		}
	}

	const outcomeQ = `UPDATE webhook_events SET outcome = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, outcomeQ, logID, decision.Outcome); err != nil {
		return nil, fmt.Errorf("updating outcome of %s event %s: %w", entry.Provider, entry.EventID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing %s event %s for user %s: %w", entry.Provider, entry.EventID, entry.UserID, err)
	}
	return result, nil
}

func upsertSubscription(ctx context.Context, tx pgx.Tx, s *model.SubscriptionRecord) (*model.SubscriptionRecord, error) {
	q := `
		INSERT INTO user_subscriptions (
			user_id, provider, provider_subscription_id, provider_customer_id, status, plan_id,
			expires_at, cancel_at_period_end, last_event_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET provider = EXCLUDED.provider,
			provider_subscription_id = EXCLUDED.provider_subscription_id,
			provider_customer_id = EXCLUDED.provider_customer_id,
			status = EXCLUDED.status,
			plan_id = EXCLUDED.plan_id,
			expires_at = EXCLUDED.expires_at,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			last_event_at = EXCLUDED.last_event_at,
			updated_at = NOW()
		RETURNING ` + subscriptionColumns
	saved, err := scanSubscription(tx.QueryRow(ctx, q,
		s.UserID,
		s.Provider,
		s.ProviderSubscriptionID,
		s.ProviderCustomerID,
		s.Status,
		s.PlanID,
		s.ExpiresAt,
		s.CancelAtPeriodEnd,
		s.LastEventAt,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert subscription for user %s: %w", s.UserID, err)
	}
	return saved, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *model.Order) (bool, error) {
	const q = `
		INSERT INTO charge_orders (
			id, user_id, provider, provider_subscription_id, event_class, phase, amount_cents,
			currency, plan_id, plan_type, credits, provider_event_type, paid_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (user_id, provider, provider_subscription_id, event_class) DO NOTHING
	`
	tag, err := tx.Exec(ctx, q,
		o.ID,
		o.UserID,
		o.Provider,
		o.ProviderSubscriptionID,
		o.EventClass,
		o.Phase,
		o.AmountCents,
		o.Currency,
		o.PlanID,
		o.PlanType,
		o.Credits,
		o.ProviderEventType,
		o.PaidAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert %s order for user %s: %w", o.EventClass, o.UserID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) LogEvent(ctx context.Context, entry model.WebhookEventLog) error {
	const q = `
		INSERT INTO webhook_events (provider, event_id, event_type, user_id, outcome, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, event_id) WHERE event_id <> '' AND outcome NOT IN ('dropped', 'ignored') DO NOTHING
	`
	_, err := r.pool.Exec(ctx, q, entry.Provider, entry.EventID, entry.ProviderEventType, entry.UserID, entry.Outcome, entry.Error)
	if err != nil {
		return fmt.Errorf("logging %s event %s: %w", entry.Provider, entry.EventID, err)
	}
	return nil
}

func (r *subscriptionRepo) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	const q = `
		UPDATE user_subscriptions
		SET status = 'expired',
			cancel_at_period_end = FALSE,
			updated_at = NOW()
		WHERE status = 'active'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
		RETURNING user_id
	`
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, fmt.Errorf("expiring subscriptions due before %s: %w", now.Format(time.RFC3339), err)
	}
	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting expired subscriptions: %w", err)
	}
	return userIDs, nil
}

func (r *subscriptionRepo) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	const q = `
		SELECT id, user_id, provider, provider_subscription_id, event_class, phase, amount_cents,
			   currency, plan_id, plan_type, credits, provider_event_type, paid_at, created_at
		FROM charge_orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Provider,
			&o.ProviderSubscriptionID,
			&o.EventClass,
			&o.Phase,
			&o.AmountCents,
			&o.Currency,
			&o.PlanID,
			&o.PlanType,
			&o.Credits,
			&o.ProviderEventType,
			&o.PaidAt,
			&o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order for user %s: %w", userID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders for user %s: %w", userID, err)
	}
	return orders, nil
}
