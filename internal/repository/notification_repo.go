package repository

import (
	"context"
	"time"

	"bookstore/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.PaymentNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListOrphans returns notifications that matched no payment, newest first.
func (r *NotificationRepository) ListOrphans(ctx context.Context, since time.Time, limit int) ([]models.PaymentNotification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var list []models.PaymentNotification
	err := r.db.WithContext(ctx).
		Where("matched = ? AND created_at >= ?", false, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
