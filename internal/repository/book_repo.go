package repository

import (
	"context"

	"bookstore/internal/models"

	"gorm.io/gorm"
)

type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	var b models.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookRepository) Create(ctx context.Context, b *models.Book) error {
	return r.db.WithContext(ctx).Create(b).Error
}
