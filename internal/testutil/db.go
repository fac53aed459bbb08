package testutil

import (
	"testing"

	"bookstore/config"
	"bookstore/internal/database"
	"bookstore/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(sqlite.Open(dsn), &config.DatabaseConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedBook inserts a paid book with the given id and price.
func SeedBook(t *testing.T, db *gorm.DB, id string, price int64) *models.Book {
	t.Helper()
	b := &models.Book{
		ID:            id,
		Title:         "The River Between",
		Author:        "Ngugi wa Thiong'o",
		Price:         decimal.NewFromInt(price),
		PDFPublicID:   "books/" + id + ".pdf",
		CoverPublicID: "covers/" + id + ".jpg",
	}
	require.NoError(t, db.Create(b).Error)
	return b
}
