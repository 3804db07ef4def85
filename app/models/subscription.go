package models

import "time"

// SubscriptionStatus constants for well-known Stripe subscription states.
// There is no "deleted" status: provider-side deletion is represented as
// canceled, and rows are never removed.
const (
	StatusTrialing   = "trialing"
	StatusActive     = "active"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
)

// Subscription is the local cache of a user's provider-side subscription
// state. stripe_subscription_id is the idempotency key correlating webhook
// events to a row and maps to at most one row (UNIQUE in the schema).
type Subscription struct {
	ID                   string     `json:"id" db:"id"`
	UserID               string     `json:"user_id" db:"user_id"`
	PlanID               string     `json:"plan_id" db:"plan_id"`
	PlanName             string     `json:"plan_name,omitempty" db:"plan_name"`
	Status               string     `json:"status" db:"status"`
	CurrentPeriodStart   *time.Time `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end" db:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	StripeCustomerID     string     `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty" db:"stripe_subscription_id"`
	CanceledAt           *time.Time `json:"canceled_at,omitempty" db:"canceled_at"`
}
