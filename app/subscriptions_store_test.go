package app

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestListActivePlans(t *testing.T) {
	store, mock := newMockStore(t)

	rows := planRowColumns()
	mock.ExpectQuery("SELECT(.|\n)*FROM subscription_plans(.|\n)*WHERE is_active").
		WillReturnRows(sqlmock.NewRows(rows).
			AddRow("plan-free", "Free", "", 0.0, "jpy", 3, 5, 100,
				false, false, false, false, false, "", 0).
			AddRow("plan-pro", "Pro", "For firms", 4980.0, "jpy", nil, nil, nil,
				true, true, true, true, true, "price_pro", 1))

	plans, err := store.ListActivePlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)

	free, pro := plans[0], plans[1]
	assert.False(t, free.Purchasable())
	require.NotNil(t, free.MaxProjects)
	assert.Equal(t, 3, *free.MaxProjects)

	assert.True(t, pro.Purchasable())
	assert.Nil(t, pro.MaxProjects)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveSubscriptionMapsNullables(t *testing.T) {
	store, mock := newMockStore(t)

	end := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT(.|\n)*FROM user_subscriptions").
		WithArgs("user-1", "active").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "plan_id", "name", "status",
			"current_period_start", "current_period_end", "cancel_at_period_end",
			"stripe_customer_id", "stripe_subscription_id", "canceled_at",
		}).AddRow("row-1", "user-1", "plan-pro", "Pro", "active",
			nil, end, false, "cus_1", "sub_1", nil))

	sub, err := store.GetActiveSubscription(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Pro", sub.PlanName)
	assert.Nil(t, sub.CurrentPeriodStart)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, end.Equal(*sub.CurrentPeriodEnd))
	assert.Equal(t, "sub_1", sub.StripeSubscriptionID)
	assert.Nil(t, sub.CanceledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveSubscriptionNone(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT(.|\n)*FROM user_subscriptions").
		WithArgs("user-1", "active").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetActiveSubscription(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStripeCustomerIDNone(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT stripe_customer_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"stripe_customer_id"}))

	id, err := store.FindStripeCustomerID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSubscriptionFromCheckoutNullsEmptyCustomer(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO user_subscriptions").
		WithArgs("user-1", "plan-pro", "active", nil, "sub_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpsertSubscriptionFromCheckout(context.Background(), "user-1", "plan-pro", "", "sub_1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySubscriptionUpdateSkipsCanceledRows(t *testing.T) {
	store, mock := newMockStore(t)

	start := time.Unix(1700000000, 0).UTC()
	end := time.Unix(1702592000, 0).UTC()
	mock.ExpectExec("UPDATE user_subscriptions").
		WithArgs("sub_1", "active", start, end, false, "canceled").
		WillReturnResult(sqlmock.NewResult(0, 0))

	matched, err := store.ApplySubscriptionUpdate(context.Background(), "sub_1", "active", start, end, false)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSubscriptionCanceled(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE user_subscriptions").
		WithArgs("sub_1", "canceled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	matched, err := store.MarkSubscriptionCanceled(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSubscriptionPastDueGuardsCanceled(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE user_subscriptions").
		WithArgs("sub_1", "past_due", "canceled").
		WillReturnResult(sqlmock.NewResult(0, 0))

	matched, err := store.MarkSubscriptionPastDue(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}
