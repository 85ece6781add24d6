package routes

import (
	"net/http"

	adminapi "gpt-storefront/internal/api/admin"
	authapi "gpt-storefront/internal/api/auth"
	"gpt-storefront/internal/api/billing"
	"gpt-storefront/internal/api/gpt"
	"gpt-storefront/internal/api/products"
	stripewebhooks "gpt-storefront/internal/api/stripewebhook"
	"gpt-storefront/internal/api/support"
	"gpt-storefront/internal/api/users"
	"gpt-storefront/internal/app/http/middleware"
	"gpt-storefront/internal/entitlement"
	"gpt-storefront/internal/infra/mail"
	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/reconcile"

	"github.com/gin-gonic/gin"
)

// Deps carries the services the handlers are built from.
type Deps struct {
	Store       *ledger.GormStore
	Gateway     stripe.Gateway
	Reconciler  *reconcile.Service
	Entitlement *entitlement.Service
	Mailer      mail.Mailer
	Assistant   support.Assistant

	JWTSecret     string
	AppURL        string
	WebhookSecret string
	VerifyAPIKey  string
	// Lets /api/gpt-verify run without a key. Development only.
	AllowOpenVerify bool
	// Nil disables Google sign-in.
	Google *authapi.GoogleConfig
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	authH := authapi.NewHandler(d.Store, d.Mailer, d.JWTSecret, d.AppURL)
	if d.Google != nil {
		authH = authH.WithGoogle(*d.Google)
	}
	billingH := billing.NewHandler(d.Store, d.Gateway, d.Reconciler, d.Entitlement)
	webhookH := stripewebhooks.NewHandler(d.Store, d.Gateway, d.Reconciler, d.WebhookSecret)
	gptH := gpt.NewHandler(d.Entitlement)
	usersH := users.NewHandler(d.Store)
	productsH := products.NewHandler(d.Store)
	supportH := support.NewHandler(d.Assistant)
	adminH := adminapi.NewHandler(d.Store, d.Reconciler)

	// Raw body: the signature covers the exact bytes Stripe sent.
	r.POST("/api/webhooks/stripe", webhookH.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ✅ Apply input sanitization to public routes only
	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.GET("/products", products.ListProducts)
	public.POST("/register", authH.Register)
	public.POST("/login", authH.Login)
	public.POST("/request-password-reset", authH.RequestPasswordReset)
	public.POST("/reset-password", authH.ResetPassword)

	if d.Google != nil {
		public.GET("/auth/google", authH.GoogleStart)
		public.GET("/auth/google/callback", authH.GoogleCallback)
	}

	// Called by the external tool's backend, not by browsers.
	verify := r.Group("/api")
	verify.Use(middleware.RequireServiceKey(d.VerifyAPIKey, d.AllowOpenVerify), middleware.SanitizeAndCleanInputMiddleware())
	verify.POST("/gpt-verify", gptH.GptVerify)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/me", usersH.GetCurrentUser)
	auth.GET("/payments", billingH.GetPaymentHistory)
	auth.POST("/change-password", authH.ChangePassword)

	auth.POST("/api/create-payment-intent", billingH.CreatePaymentIntent)
	auth.POST("/api/confirm-payment", billingH.ConfirmPayment)
	auth.POST("/api/access-gpt", gptH.AccessGPT)
	auth.GET("/api/dashboard", usersH.GetDashboard)
	auth.POST("/api/support/chat", supportH.Chat)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.RequireRole("admin"))
	admin.GET("/users", adminH.ListAllUsers)
	admin.GET("/users/lookup", adminH.LookupUser)
	admin.GET("/user/:id", adminH.GetUserDetails)
	admin.GET("/payments", adminH.ListAllPayments)
	admin.GET("/stats", adminH.GetAdminStats)
	admin.GET("/fulfillment", adminH.ListFulfillment)
	admin.POST("/fulfillment/:id/retry", adminH.RetryFulfillment)
	admin.POST("/reconcile/:id", adminH.ReconcileIntent)
	admin.GET("/products", productsH.ListModels)
	admin.POST("/products/sync", productsH.SyncProducts)
}
