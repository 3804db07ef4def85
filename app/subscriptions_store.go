package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kkk9131/Scaff-Saas/app/models"
)

const planColumns = `
		id,
		name,
		COALESCE(description, ''),
		monthly_price,
		currency,
		max_projects,
		max_drawings_per_project,
		max_storage_mb,
		ai_chat_enabled,
		advanced_drawing_enabled,
		export_dxf_enabled,
		export_pdf_enabled,
		ocr_analysis_enabled,
		COALESCE(stripe_price_id, ''),
		display_order`

// ListActivePlans returns the active catalog ordered for display.
func (s *Store) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+planColumns+`
		FROM subscription_plans
		WHERE is_active = true
		ORDER BY display_order;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPlan fetches a single plan by id.
func (s *Store) GetPlan(ctx context.Context, planID string) (models.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+planColumns+`
		FROM subscription_plans
		WHERE id = $1;
	`, planID)

	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Plan{}, ErrPlanNotFound
		}
		return models.Plan{}, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (models.Plan, error) {
	var (
		p                             models.Plan
		maxProjects, maxDraw, maxStor sql.NullInt64
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.MonthlyPrice,
		&p.Currency,
		&maxProjects,
		&maxDraw,
		&maxStor,
		&p.AIChatEnabled,
		&p.AdvancedDrawingEnabled,
		&p.ExportDXFEnabled,
		&p.ExportPDFEnabled,
		&p.OCRAnalysisEnabled,
		&p.StripePriceID,
		&p.DisplayOrder,
	)
	if err != nil {
		return models.Plan{}, err
	}
	p.MaxProjects = nullableIntToPtr(maxProjects)
	p.MaxDrawingsPerProject = nullableIntToPtr(maxDraw)
	p.MaxStorageMB = nullableIntToPtr(maxStor)
	return p, nil
}

func nullableIntToPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableTimeToPtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// GetActiveSubscription returns the user's current subscription joined with
// the plan name, or ErrNoActiveSubscription.
func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (models.Subscription, error) {
	var (
		sub                    models.Subscription
		periodStart, periodEnd sql.NullTime
		canceledAt             sql.NullTime
		customerID, stripeSub  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			us.id,
			us.user_id,
			us.plan_id,
			sp.name,
			us.status,
			us.current_period_start,
			us.current_period_end,
			us.cancel_at_period_end,
			us.stripe_customer_id,
			us.stripe_subscription_id,
			us.canceled_at
		FROM user_subscriptions us
		JOIN subscription_plans sp ON sp.id = us.plan_id
		WHERE us.user_id = $1 AND us.status = $2
		ORDER BY us.created_at DESC
		LIMIT 1;
	`, userID, models.StatusActive).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&sub.PlanName,
		&sub.Status,
		&periodStart,
		&periodEnd,
		&sub.CancelAtPeriodEnd,
		&customerID,
		&stripeSub,
		&canceledAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Subscription{}, ErrNoActiveSubscription
		}
		return models.Subscription{}, err
	}

	sub.CurrentPeriodStart = nullableTimeToPtr(periodStart)
	sub.CurrentPeriodEnd = nullableTimeToPtr(periodEnd)
	sub.CanceledAt = nullableTimeToPtr(canceledAt)
	sub.StripeCustomerID = customerID.String
	sub.StripeSubscriptionID = stripeSub.String
	return sub, nil
}

// FindStripeCustomerID returns the customer reference from any of the user's
// subscription rows, or "" when the user has never checked out.
func (s *Store) FindStripeCustomerID(ctx context.Context, userID string) (string, error) {
	var customerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT stripe_customer_id
		FROM user_subscriptions
		WHERE user_id = $1 AND stripe_customer_id IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1;
	`, userID).Scan(&customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return customerID.String, nil
}

// UpsertSubscriptionFromCheckout records a completed checkout. The conflict
// target is the UNIQUE stripe_subscription_id column, so redelivery of the
// same completion event updates the existing row instead of inserting a
// duplicate.
func (s *Store) UpsertSubscriptionFromCheckout(ctx context.Context, userID, planID, customerID, subscriptionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_subscriptions (user_id, plan_id, status, stripe_customer_id, stripe_subscription_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (stripe_subscription_id) DO UPDATE
		SET
			user_id = EXCLUDED.user_id,
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			updated_at = now();
	`, userID, planID, models.StatusActive, nullIfEmpty(customerID), subscriptionID)
	return err
}

// ApplySubscriptionUpdate overwrites provider-owned fields by external
// subscription reference. A canceled row is terminal and is never updated;
// zero matched rows is a valid steady state under at-least-once delivery,
// reported via the bool so callers can log it.
func (s *Store) ApplySubscriptionUpdate(ctx context.Context, subscriptionID, status string, periodStart, periodEnd time.Time, cancelAtPeriodEnd bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_subscriptions
		SET
			status = $2,
			current_period_start = $3,
			current_period_end = $4,
			cancel_at_period_end = $5,
			updated_at = now()
		WHERE stripe_subscription_id = $1 AND status <> $6;
	`, subscriptionID, status, periodStart, periodEnd, cancelAtPeriodEnd, models.StatusCanceled)
	if err != nil {
		return false, err
	}
	return rowsTouched(res), nil
}

// MarkSubscriptionCanceled terminates the row for a provider-side deletion.
// Replays and the user-initiated immediate-cancel race both hit the status
// guard and become no-ops.
func (s *Store) MarkSubscriptionCanceled(ctx context.Context, subscriptionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_subscriptions
		SET status = $2, canceled_at = now(), updated_at = now()
		WHERE stripe_subscription_id = $1 AND status <> $2;
	`, subscriptionID, models.StatusCanceled)
	if err != nil {
		return false, err
	}
	return rowsTouched(res), nil
}

// MarkSubscriptionPastDue flags a failed payment.
func (s *Store) MarkSubscriptionPastDue(ctx context.Context, subscriptionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_subscriptions
		SET status = $2, updated_at = now()
		WHERE stripe_subscription_id = $1 AND status <> $3;
	`, subscriptionID, models.StatusPastDue, models.StatusCanceled)
	if err != nil {
		return false, err
	}
	return rowsTouched(res), nil
}

// CancelLocal applies user-initiated cancellation bookkeeping to a row by
// internal id. The immediate path updates optimistically; the webhook that
// follows is absorbed by the reconciler's status guard.
func (s *Store) CancelLocal(ctx context.Context, rowID string, immediately bool) error {
	if immediately {
		_, err := s.db.ExecContext(ctx, `
			UPDATE user_subscriptions
			SET status = $2, cancel_at_period_end = false, canceled_at = now(), updated_at = now()
			WHERE id = $1;
		`, rowID, models.StatusCanceled)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_subscriptions
		SET cancel_at_period_end = true, canceled_at = now(), updated_at = now()
		WHERE id = $1;
	`, rowID)
	return err
}

func rowsTouched(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
