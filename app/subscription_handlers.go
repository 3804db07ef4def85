package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kkk9131/Scaff-Saas/app/models"
	"github.com/kkk9131/Scaff-Saas/auth"

	"github.com/gin-gonic/gin"
)

type createCheckoutSessionRequest struct {
	PlanID     string `json:"plan_id" binding:"required"`
	SuccessURL string `json:"success_url" binding:"required"`
	CancelURL  string `json:"cancel_url" binding:"required"`
}

type cancelSubscriptionRequest struct {
	Immediately bool `json:"immediately"`
}

// GetSubscriptionPlans lists active plans in display order. Public.
func (s *Server) GetSubscriptionPlans(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	plans, err := s.store.ListActivePlans(ctx)
	if err != nil {
		log.Printf("list plans failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plans"})
		return
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	c.JSON(http.StatusOK, plans)
}

// GetSubscriptionPlan returns a single plan or 404. Public.
func (s *Server) GetSubscriptionPlan(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	plan, err := s.store.GetPlan(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		log.Printf("get plan failed id=%s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plan"})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetMySubscription returns the caller's current subscription joined with
// the plan name, or null when the user has no entitlement.
func (s *Server) GetMySubscription(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sub, err := s.store.GetActiveSubscription(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNoActiveSubscription) {
			c.JSON(http.StatusOK, nil)
			return
		}
		log.Printf("my-subscription lookup failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// CreateCheckoutSession starts a Stripe checkout for the requested plan.
// No local row is written here; the completion webhook owns that, so the
// whole call is retryable by the client.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req createCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 25*time.Second)
	defer cancel()

	plan, err := s.store.GetPlan(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		log.Printf("checkout plan lookup failed plan=%s: %v", req.PlanID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plan"})
		return
	}
	if !plan.Purchasable() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "free plan does not require checkout"})
		return
	}

	customerID, err := s.store.FindStripeCustomerID(ctx, claims.Subject)
	if err != nil {
		log.Printf("checkout customer lookup failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare billing"})
		return
	}
	if customerID == "" {
		customerID, err = s.billing.CreateCustomer(ctx, claims.Subject, claims.Email)
		if err != nil {
			log.Printf("stripe customer create failed user=%s: %v", claims.Subject, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to prepare billing"})
			return
		}
	}

	sess, err := s.billing.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    plan.StripePriceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		UserID:     claims.Subject,
		PlanID:     plan.ID,
	})
	if err != nil {
		log.Printf("stripe checkout session failed user=%s plan=%s: %v", claims.Subject, plan.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID, "url": sess.URL})
}

// CancelSubscription cancels the caller's active subscription, either at
// period end or immediately. The immediate path updates local state without
// waiting for the confirming webhook; the reconciler treats that webhook as
// a no-op when it lands.
func (s *Server) CancelSubscription(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req cancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 25*time.Second)
	defer cancel()

	sub, err := s.store.GetActiveSubscription(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNoActiveSubscription) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active subscription"})
			return
		}
		log.Printf("cancel lookup failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}

	// An active row without an external ref should not normally exist; in
	// that case only local state is updated.
	if sub.StripeSubscriptionID != "" {
		if err := s.billing.CancelSubscription(ctx, sub.StripeSubscriptionID, !req.Immediately); err != nil {
			log.Printf("stripe cancel failed user=%s: %v", claims.Subject, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to cancel subscription"})
			return
		}
	}

	if err := s.store.CancelLocal(ctx, sub.ID, req.Immediately); err != nil {
		log.Printf("cancel local update failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "subscription canceled"})
}

// CreatePortalSession opens a Stripe customer portal session for the caller.
func (s *Server) CreatePortalSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	frontendURL := strings.TrimRight(s.cfg.FrontendURL, "/")
	if frontendURL == "" {
		log.Printf("missing config: frontend_url")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 25*time.Second)
	defer cancel()

	customerID, err := s.store.FindStripeCustomerID(ctx, claims.Subject)
	if err != nil {
		log.Printf("portal customer lookup failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customer"})
		return
	}
	if customerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no billing customer for user"})
		return
	}

	url, err := s.billing.CreatePortalSession(ctx, customerID, frontendURL+"/settings/billing")
	if err != nil {
		log.Printf("stripe portal session failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
