package app

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"
)

// BillingClient abstracts the payment provider. The Stripe implementation is
// the only production one; tests substitute a recording fake.
type BillingClient interface {
	// CreateCustomer registers a billing customer for the given user and
	// returns the provider customer reference.
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	// CreateCheckoutSession starts a provider-hosted subscription checkout.
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error)
	// CancelSubscription cancels at period end or immediately.
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error
	// CreatePortalSession opens a self-service billing portal session.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// CheckoutParams carries everything needed to open a checkout session. The
// UserID/PlanID pair travels as session metadata so the completion webhook
// can correlate the session back to local records.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	UserID     string
	PlanID     string
}

// CheckoutSession is the provider session handed back to the frontend.
type CheckoutSession struct {
	ID  string
	URL string
}

// StripeBilling implements BillingClient with the Stripe API.
type StripeBilling struct{}

// NewStripeBilling wires the Stripe API key and returns the client.
func NewStripeBilling(apiKey string) *StripeBilling {
	stripe.Key = apiKey
	return &StripeBilling{}
}

// CreateCustomer creates a Stripe customer tagged with the internal user id.
// The idempotency key is derived from the user id, so two concurrent first
// checkouts for the same user collapse to a single Stripe customer.
func (b *StripeBilling) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("customer-create-" + userID)

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe customer create: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession opens a subscription-mode checkout session.
func (b *StripeBilling) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(p.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("user_id", p.UserID)
	params.AddMetadata("plan_id", p.PlanID)

	sess, err := session.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe checkout session: %w", err)
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CancelSubscription requests provider-side cancellation. Both forms are
// idempotent on the Stripe side and safe to retry.
func (b *StripeBilling) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error {
	if atPeriodEnd {
		params := &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		}
		params.Context = ctx
		if _, err := subscription.Update(subscriptionID, params); err != nil {
			return fmt.Errorf("stripe subscription update: %w", err)
		}
		return nil
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := subscription.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe subscription cancel: %w", err)
	}
	return nil
}

// CreatePortalSession creates a Stripe customer portal session.
func (b *StripeBilling) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := portal.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe portal session: %w", err)
	}
	return sess.URL, nil
}
