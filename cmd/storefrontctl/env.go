package main

import (
	"fmt"

	"gpt-storefront/config"
	"gpt-storefront/database"
	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/logging"
	"gpt-storefront/internal/reconcile"

	"gorm.io/gorm"
)

type env struct {
	cfg   config.Config
	db    *gorm.DB
	store *ledger.GormStore
}

func openEnv() (*env, error) {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, true)

	db, err := database.Open(cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &env{cfg: cfg, db: db, store: ledger.NewGormStore(db)}, nil
}

// reconciler runs without a receipt notifier: the process exits before a
// background send would finish.
func (e *env) reconciler() *reconcile.Service {
	gw := stripe.NewClient(stripe.Options{
		SecretKey:  e.cfg.StripeSecretKey,
		Timeout:    e.cfg.StripeTimeout,
		MaxRetries: e.cfg.StripeMaxRetries,
	})
	return reconcile.NewService(gw, e.store)
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
