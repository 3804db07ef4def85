package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkk9131/Scaff-Saas/app/config"
	"github.com/kkk9131/Scaff-Saas/auth"
)

// fakeBilling records calls and returns canned results.
type fakeBilling struct {
	customerID string
	session    CheckoutSession
	portalURL  string
	err        error

	createdCustomers []string
	checkouts        []CheckoutParams
	cancels          []struct {
		SubID       string
		AtPeriodEnd bool
	}
}

func (f *fakeBilling) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.createdCustomers = append(f.createdCustomers, userID)
	return f.customerID, nil
}

func (f *fakeBilling) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error) {
	if f.err != nil {
		return CheckoutSession{}, f.err
	}
	f.checkouts = append(f.checkouts, p)
	return f.session, nil
}

func (f *fakeBilling) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error {
	if f.err != nil {
		return f.err
	}
	f.cancels = append(f.cancels, struct {
		SubID       string
		AtPeriodEnd bool
	}{subscriptionID, atPeriodEnd})
	return nil
}

func (f *fakeBilling) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.portalURL, nil
}

const testUserID = "11111111-1111-1111-1111-111111111111"

// injectClaims stands in for the auth middleware.
func injectClaims(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithClaims(c.Request.Context(), &auth.Claims{
			Subject: userID,
			Email:   "user@example.com",
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newHandlerTestServer(t *testing.T, billing BillingClient) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{FrontendURL: "https://app.example.com"}
	server := NewServer(NewStore(db), billing, cfg, nil)

	router := gin.New()
	router.GET("/api/subscriptions/plans", server.GetSubscriptionPlans)
	router.GET("/api/subscriptions/plans/:id", server.GetSubscriptionPlan)

	authed := router.Group("/api", injectClaims(testUserID))
	authed.GET("/subscriptions/my-subscription", server.GetMySubscription)
	authed.POST("/subscriptions/create-checkout-session", server.CreateCheckoutSession)
	authed.POST("/subscriptions/cancel", server.CancelSubscription)
	authed.POST("/subscriptions/portal-session", server.CreatePortalSession)
	return mock, router
}

func planRowColumns() []string {
	return []string{
		"id", "name", "description", "monthly_price", "currency",
		"max_projects", "max_drawings_per_project", "max_storage_mb",
		"ai_chat_enabled", "advanced_drawing_enabled",
		"export_dxf_enabled", "export_pdf_enabled", "ocr_analysis_enabled",
		"stripe_price_id", "display_order",
	}
}

func paidPlanRow(id string) *sqlmock.Rows {
	return sqlmock.NewRows(planRowColumns()).
		AddRow(id, "Pro", "For firms", 4980.0, "jpy",
			nil, nil, nil,
			true, true, true, true, true,
			"price_pro_monthly", 1)
}

func freePlanRow(id string) *sqlmock.Rows {
	return sqlmock.NewRows(planRowColumns()).
		AddRow(id, "Free", "", 0.0, "jpy",
			3, 5, 100,
			false, false, false, false, false,
			"", 0)
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestGetSubscriptionPlansEmptyCatalog(t *testing.T) {
	mock, router := newHandlerTestServer(t, &fakeBilling{})

	mock.ExpectQuery("SELECT(.|\n)*FROM subscription_plans").
		WillReturnRows(sqlmock.NewRows(planRowColumns()))

	resp := doJSON(router, http.MethodGet, "/api/subscriptions/plans", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubscriptionPlanNotFound(t *testing.T) {
	mock, router := newHandlerTestServer(t, &fakeBilling{})

	mock.ExpectQuery("SELECT(.|\n)*FROM subscription_plans").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(planRowColumns()))

	resp := doJSON(router, http.MethodGet, "/api/subscriptions/plans/missing", nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMySubscriptionNoneIsNull(t *testing.T) {
	mock, router := newHandlerTestServer(t, &fakeBilling{})

	mock.ExpectQuery("SELECT(.|\n)*FROM user_subscriptions").
		WithArgs(testUserID, "active").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resp := doJSON(router, http.MethodGet, "/api/subscriptions/my-subscription", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "null", resp.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutSessionFreePlanRejected(t *testing.T) {
	billing := &fakeBilling{}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT(.|\n)*FROM subscription_plans").
		WithArgs("plan-free").
		WillReturnRows(freePlanRow("plan-free"))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/create-checkout-session", gin.H{
		"plan_id":     "plan-free",
		"success_url": "https://app.example.com/done",
		"cancel_url":  "https://app.example.com/pricing",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, billing.createdCustomers)
	assert.Empty(t, billing.checkouts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutSessionMissingFields(t *testing.T) {
	billing := &fakeBilling{}
	_, router := newHandlerTestServer(t, billing)

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/create-checkout-session", gin.H{
		"plan_id": "plan-pro",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, billing.checkouts)
}

func TestCreateCheckoutSessionReusesCustomer(t *testing.T) {
	billing := &fakeBilling{
		session: CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"},
	}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT(.|\n)*FROM subscription_plans").
		WithArgs("plan-pro").
		WillReturnRows(paidPlanRow("plan-pro"))
	mock.ExpectQuery("SELECT stripe_customer_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"stripe_customer_id"}).AddRow("cus_existing"))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/create-checkout-session", gin.H{
		"plan_id":     "plan-pro",
		"success_url": "https://app.example.com/done",
		"cancel_url":  "https://app.example.com/pricing",
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, billing.createdCustomers)
	require.Len(t, billing.checkouts, 1)
	got := billing.checkouts[0]
	assert.Equal(t, "cus_existing", got.CustomerID)
	assert.Equal(t, "price_pro_monthly", got.PriceID)
	assert.Equal(t, testUserID, got.UserID)
	assert.Equal(t, "plan-pro", got.PlanID)

	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "cs_1", body["session_id"])
	assert.Equal(t, "https://checkout.stripe.com/cs_1", body["url"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutSessionCreatesCustomerOnFirstCheckout(t *testing.T) {
	billing := &fakeBilling{
		customerID: "cus_new",
		session:    CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"},
	}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT(.|\n)*FROM subscription_plans").
		WithArgs("plan-pro").
		WillReturnRows(paidPlanRow("plan-pro"))
	mock.ExpectQuery("SELECT stripe_customer_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"stripe_customer_id"}))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/create-checkout-session", gin.H{
		"plan_id":     "plan-pro",
		"success_url": "https://app.example.com/done",
		"cancel_url":  "https://app.example.com/pricing",
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{testUserID}, billing.createdCustomers)
	require.Len(t, billing.checkouts, 1)
	assert.Equal(t, "cus_new", billing.checkouts[0].CustomerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutSessionProviderFailure(t *testing.T) {
	billing := &fakeBilling{err: errors.New("stripe down")}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT(.|\n)*FROM subscription_plans").
		WithArgs("plan-pro").
		WillReturnRows(paidPlanRow("plan-pro"))
	mock.ExpectQuery("SELECT stripe_customer_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"stripe_customer_id"}).AddRow("cus_existing"))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/create-checkout-session", gin.H{
		"plan_id":     "plan-pro",
		"success_url": "https://app.example.com/done",
		"cancel_url":  "https://app.example.com/pricing",
	})

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func activeSubscriptionRow(rowID, stripeSubID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "plan_id", "name", "status",
		"current_period_start", "current_period_end", "cancel_at_period_end",
		"stripe_customer_id", "stripe_subscription_id", "canceled_at",
	}).AddRow(rowID, testUserID, "plan-pro", "Pro", "active",
		nil, nil, false, "cus_1", stripeSubID, nil)
}

func TestCancelSubscriptionAtPeriodEnd(t *testing.T) {
	billing := &fakeBilling{}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT(.|\n)*FROM user_subscriptions").
		WithArgs(testUserID, "active").
		WillReturnRows(activeSubscriptionRow("row-1", "sub_1"))
	mock.ExpectExec("UPDATE user_subscriptions").
		WithArgs("row-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/cancel", gin.H{})

	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, billing.cancels, 1)
	assert.Equal(t, "sub_1", billing.cancels[0].SubID)
	assert.True(t, billing.cancels[0].AtPeriodEnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSubscriptionImmediately(t *testing.T) {
	billing := &fakeBilling{}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT(.|\n)*FROM user_subscriptions").
		WithArgs(testUserID, "active").
		WillReturnRows(activeSubscriptionRow("row-1", "sub_1"))
	mock.ExpectExec("UPDATE user_subscriptions").
		WithArgs("row-1", "canceled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/cancel", gin.H{
		"immediately": true,
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, billing.cancels, 1)
	assert.False(t, billing.cancels[0].AtPeriodEnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSubscriptionNoneActive(t *testing.T) {
	billing := &fakeBilling{}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT(.|\n)*FROM user_subscriptions").
		WithArgs(testUserID, "active").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/cancel", gin.H{})

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Empty(t, billing.cancels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSubscriptionProviderFailureLeavesLocalState(t *testing.T) {
	billing := &fakeBilling{err: errors.New("stripe down")}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT(.|\n)*FROM user_subscriptions").
		WithArgs(testUserID, "active").
		WillReturnRows(activeSubscriptionRow("row-1", "sub_1"))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/cancel", gin.H{})

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePortalSessionRequiresCustomer(t *testing.T) {
	billing := &fakeBilling{portalURL: "https://billing.stripe.com/p/1"}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT stripe_customer_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"stripe_customer_id"}))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/portal-session", nil)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePortalSession(t *testing.T) {
	billing := &fakeBilling{portalURL: "https://billing.stripe.com/p/1"}
	mock, router := newHandlerTestServer(t, billing)

	mock.ExpectQuery("SELECT stripe_customer_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"stripe_customer_id"}).AddRow("cus_1"))

	resp := doJSON(router, http.MethodPost, "/api/subscriptions/portal-session", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "https://billing.stripe.com/p/1", body["url"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
