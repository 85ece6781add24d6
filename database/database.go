package database

import (
	"gpt-storefront/config"
	"gpt-storefront/internal/domain/access"
	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/users"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() {
	if config.DB_URL == "" {
		log.Fatal().Msg("DB_URL not set")
	}

	db, err := Open(config.DB_URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate failed")
	}

	DB = db
	log.Info().Int("tables", len(Models())).Msg("database connected and migrated")
}

// Open connects to Postgres. Unique violations come back as
// gorm.ErrDuplicatedKey, which the ledger relies on.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&users.User{},
		&access.GptModel{},
		&billing.Subscription{},
		&billing.Payment{},
		&access.GptAccess{},
		&billing.WebhookEvent{},
		&billing.FulfillmentIssue{},
	}
}

// Migrate creates or updates every table. Ids are generated in Go, so no
// database extensions are needed.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
