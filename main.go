package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gpt-storefront/config"
	"gpt-storefront/database"
	authapi "gpt-storefront/internal/api/auth"
	routes "gpt-storefront/internal/app/http"
	"gpt-storefront/internal/app/http/middleware"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/entitlement"
	"gpt-storefront/internal/infra/assistant"
	"gpt-storefront/internal/infra/mail"
	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/logging"
	"gpt-storefront/internal/reconcile"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	config.LoadEnv()
	logging.Setup(config.LOG_LEVEL, config.IsDevelopment())
	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.InitDB()
	store := ledger.NewGormStore(database.DB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := store.SyncModels(ctx, catalog.All())
	if err != nil {
		log.Fatal().Err(err).Msg("sync catalog models")
	}
	log.Info().
		Str("catalog_version", catalog.Version).
		Strs("created", report.Created).
		Strs("updated", report.Updated).
		Strs("deactivated", report.Deactivated).
		Msg("catalog models synced")

	gateway := stripe.NewClient(stripe.Options{
		SecretKey:  config.STRIPE_SECRET_KEY,
		Timeout:    config.STRIPE_TIMEOUT,
		MaxRetries: config.STRIPE_MAX_RETRIES,
	})

	var mailer mail.Mailer = mail.LogMailer{}
	if config.SMTPEnabled() {
		mailer = mail.NewSMTPMailer(config.SMTP_HOST, config.SMTP_PORT, config.SMTP_FROM, config.SMTP_PASSWORD)
	} else {
		log.Warn().Msg("SMTP not configured, emails are only logged")
	}

	reconciler := reconcile.NewService(gateway, store,
		reconcile.WithNotifier(mail.NewReceiptNotifier(store, mailer, config.APP_URL)))

	deps := routes.Deps{
		Store:           store,
		Gateway:         gateway,
		Reconciler:      reconciler,
		Entitlement:     entitlement.NewService(store),
		Mailer:          mailer,
		Assistant:       assistant.NewClient(config.SUPPORT_API_KEY, config.SUPPORT_MODEL, config.SUPPORT_BASE_URL),
		JWTSecret:       config.JWT_SECRET,
		AppURL:          config.APP_URL,
		WebhookSecret:   config.STRIPE_WEBHOOK_SECRET,
		VerifyAPIKey:    config.VERIFY_API_KEY,
		AllowOpenVerify: config.IsDevelopment(),
	}
	if config.GoogleEnabled() {
		deps.Google = &authapi.GoogleConfig{
			ClientID:         config.GOOGLE_CLIENT_ID,
			ClientSecret:     config.GOOGLE_CLIENT_SECRET,
			RedirectURL:      config.GOOGLE_REDIRECT_URL,
			FrontendRedirect: config.GOOGLE_FRONTEND_REDIRECT,
			SecureCookie:     !config.IsDevelopment(),
		}
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// ✅ Add CORS middleware BEFORE registering routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + config.PORT,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", config.APP_ENV).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}
