package app

import (
	"time"

	"github.com/kkk9131/Scaff-Saas/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter(s *Server) (*gin.Engine, error) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/", s.Root)
	router.GET("/api/health", s.Health)
	router.GET("/api/subscriptions/plans", s.GetSubscriptionPlans)
	router.GET("/api/subscriptions/plans/:id", s.GetSubscriptionPlan)
	router.POST("/api/subscriptions/webhook", s.StripeWebhook)

	verifier, err := auth.NewVerifierFromEnv()
	if err != nil && !auth.AuthDisabled() {
		return nil, err
	}

	protected := router.Group("/api")
	protected.Use(auth.Middleware(verifier, auth.MiddlewareConfig{
		OnAuthenticated: func(c *gin.Context, claims *auth.Claims) error {
			return s.store.UpsertUserFromClaims(c.Request.Context(), claims)
		},
	}))

	protected.GET("/me", s.Me)
	protected.GET("/subscriptions/my-subscription", s.GetMySubscription)
	protected.POST("/subscriptions/create-checkout-session", s.CreateCheckoutSession)
	protected.POST("/subscriptions/cancel", s.CancelSubscription)
	protected.POST("/subscriptions/portal-session", s.CreatePortalSession)

	protected.POST("/projects", s.CreateProject)
	protected.GET("/projects", s.ListProjects)
	protected.GET("/projects/:id", s.GetProject)
	protected.PUT("/projects/:id", s.UpdateProject)
	protected.DELETE("/projects/:id", s.DeleteProject)
	protected.POST("/projects/:id/duplicate", s.DuplicateProject)

	protected.GET("/projects/:id/drawing", s.GetLatestDrawing)
	protected.POST("/drawings", s.SaveDrawing)
	protected.POST("/projects/:id/analyze", s.AnalyzeDrawing)
	protected.GET("/jobs/:jobid", s.GetJobStatus)

	return router, nil
}
