// Plan-limit enforcement for project creation.
package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kkk9131/Scaff-Saas/app/models"
)

// FreeMaxProjects caps users without an active subscription.
const FreeMaxProjects = 3

type quotaError struct {
	Limit int
	Used  int
}

func (e quotaError) Error() string {
	return "project limit reached"
}

// checkProjectQuota compares the caller's project count against the plan
// limit inside the caller's transaction. The caller must run serializable
// and must perform its insert in the same transaction: the count read and
// the insert then form a rw-antidependency, so of two concurrent creates
// with one slot left one aborts with a serialization failure instead of
// both passing. A NULL max_projects means unlimited.
func checkProjectQuota(ctx context.Context, tx *sql.Tx, userID string) error {
	limit := FreeMaxProjects

	var maxProjects sql.NullInt64
	err := tx.QueryRowContext(ctx, `
		SELECT sp.max_projects
		FROM user_subscriptions us
		JOIN subscription_plans sp ON sp.id = us.plan_id
		WHERE us.user_id = $1 AND us.status = $2
		ORDER BY us.created_at DESC
		LIMIT 1;
	`, userID, models.StatusActive).Scan(&maxProjects)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No entitlement, free-tier cap applies.
	case err != nil:
		return err
	case maxProjects.Valid:
		limit = int(maxProjects.Int64)
	default:
		return nil
	}

	var used int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM projects WHERE user_id = $1;
	`, userID).Scan(&used); err != nil {
		return err
	}
	if used >= limit {
		return quotaError{Limit: limit, Used: used}
	}
	return nil
}

// HasOCRAnalysis reports whether the caller's plan includes OCR drawing
// analysis. No active subscription means no feature.
func (s *Store) HasOCRAnalysis(ctx context.Context, userID string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, `
		SELECT sp.ocr_analysis_enabled
		FROM user_subscriptions us
		JOIN subscription_plans sp ON sp.id = us.plan_id
		WHERE us.user_id = $1 AND us.status = $2
		ORDER BY us.created_at DESC
		LIMIT 1;
	`, userID, models.StatusActive).Scan(&enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return enabled, nil
}
