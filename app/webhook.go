package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const maxWebhookBodyBytes = int64(65536)

// errMalformedEvent marks a verified event whose payload cannot be decoded.
// Redelivery cannot fix it, so the webhook is rejected with a 4xx.
var errMalformedEvent = errors.New("malformed event payload")

// StripeWebhook verifies an inbound Stripe event and reconciles the local
// subscription record with it. Signature and payload failures are terminal
// (4xx, no state change); store failures return 5xx so Stripe redelivers
// and the write can complete later. Event types outside the handled set are
// acknowledged as no-ops so they never trigger redelivery.
func (s *Server) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	endpointSecret := s.cfg.Stripe.WebhookSecret
	if endpointSecret == "" {
		log.Printf("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		endpointSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		err = s.reconcileCheckoutCompleted(ctx, event)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		err = s.reconcileSubscriptionUpdated(ctx, event)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		err = s.reconcileSubscriptionDeleted(ctx, event)
	case stripe.EventTypeInvoicePaymentFailed:
		err = s.reconcileInvoicePaymentFailed(ctx, event)
	default:
		// Unsubscribed event type: acknowledge so Stripe stops sending it.
	}

	if err != nil {
		if errors.Is(err, errMalformedEvent) {
			log.Printf("stripe webhook rejected type=%s id=%s: %v", event.Type, event.ID, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
			return
		}
		log.Printf("stripe webhook store write failed type=%s id=%s: %v", event.Type, event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// reconcileCheckoutCompleted upserts the subscription row established by a
// completed checkout. Replaying the same event hits the uniqueness
// constraint on the external subscription reference and updates in place.
func (s *Server) reconcileCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("%w: checkout session: %v", errMalformedEvent, err)
	}

	userID := sess.Metadata["user_id"]
	planID := sess.Metadata["plan_id"]
	if userID == "" || planID == "" {
		// Session created outside this system; nothing to correlate.
		log.Printf("checkout completed without correlation metadata id=%s", event.ID)
		return nil
	}
	if sess.Subscription == nil || sess.Subscription.ID == "" {
		log.Printf("checkout completed without subscription ref id=%s", event.ID)
		return nil
	}

	customerID := ""
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}

	return s.store.UpsertSubscriptionFromCheckout(ctx, userID, planID, customerID, sess.Subscription.ID)
}

// reconcileSubscriptionUpdated overwrites provider-owned fields. Updates are
// applied last-write-wins by arrival; a canceled row is terminal and the
// store-level guard keeps late updates from resurrecting it.
func (s *Server) reconcileSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("%w: subscription: %v", errMalformedEvent, err)
	}

	matched, err := s.store.ApplySubscriptionUpdate(
		ctx,
		sub.ID,
		string(sub.Status),
		time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		sub.CancelAtPeriodEnd,
	)
	if err != nil {
		return err
	}
	if !matched {
		// Row not created yet, already canceled, or not tracked here.
		log.Printf("subscription updated with no matching row sub=%s", sub.ID)
	}
	return nil
}

// reconcileSubscriptionDeleted terminates the row. A second identical event,
// or the webhook confirming a user-initiated immediate cancel, matches zero
// rows and is a no-op.
func (s *Server) reconcileSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("%w: subscription: %v", errMalformedEvent, err)
	}

	matched, err := s.store.MarkSubscriptionCanceled(ctx, sub.ID)
	if err != nil {
		return err
	}
	if !matched {
		log.Printf("subscription deleted already reconciled sub=%s", sub.ID)
	}
	return nil
}

// reconcileInvoicePaymentFailed flags the referenced subscription past_due.
func (s *Server) reconcileInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("%w: invoice: %v", errMalformedEvent, err)
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		// One-off invoice; not a subscription payment.
		return nil
	}

	matched, err := s.store.MarkSubscriptionPastDue(ctx, inv.Subscription.ID)
	if err != nil {
		return err
	}
	if !matched {
		log.Printf("payment failed for unknown subscription sub=%s", inv.Subscription.ID)
	}
	return nil
}
