// Package ledgertest opens migrated in-memory SQLite databases for tests.
package ledgertest

import (
	"context"
	"testing"

	"gpt-storefront/database"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/domain/users"
	"gpt-storefront/internal/ledger"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory database. A single connection keeps
// every query on the same in-memory schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewStore returns a store over NewDB with the catalog models seeded.
func NewStore(t testing.TB) *ledger.GormStore {
	t.Helper()
	store := ledger.NewGormStore(NewDB(t))
	_, err := store.SyncModels(context.Background(), catalog.All())
	require.NoError(t, err)
	return store
}

// CreateUser inserts a local user with the given id and email.
func CreateUser(t testing.TB, db *gorm.DB, id, email string) *users.User {
	t.Helper()
	u := &users.User{ID: id, Email: email, Username: id, Name: id}
	require.NoError(t, db.Create(u).Error)
	return u
}
