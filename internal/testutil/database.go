// Package testutil holds helpers shared by package tests. It must only be
// imported from _test.go files.
package testutil

import (
	"testing"

	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the production
// schema applied. The pool is pinned to one connection because every SQLite
// connection to ":memory:" sees a different database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, repositories.AutoMigrate(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// CloseDB closes the underlying pool so later queries fail like an unreachable store.
func CloseDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
