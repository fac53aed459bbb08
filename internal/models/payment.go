package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one purchase attempt. OrderTrackingID is assigned by the gateway and
// written once, when the record is created after a successful submission.
type Payment struct {
	ID                       string          `gorm:"primaryKey;size:36" json:"id"`
	UserID                   string          `gorm:"size:191;not null;index" json:"userId"`
	BookID                   string          `gorm:"size:191;not null;index" json:"bookId"`
	OrderID                  string          `gorm:"size:191;not null;uniqueIndex" json:"orderId"`
	OrderTrackingID          string          `gorm:"size:191;index" json:"orderTrackingId"`
	MerchantReference        string          `gorm:"size:191;index" json:"merchantReference"`
	Amount                   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Currency                 string          `gorm:"size:3;not null" json:"currency"`
	Status                   string          `gorm:"size:20;not null;index" json:"status"` // pending, completed, failed, cancelled
	PaymentMethod            string          `gorm:"size:100" json:"paymentMethod,omitempty"`
	ConfirmationCode         string          `gorm:"size:191" json:"confirmationCode,omitempty"`
	PaymentStatusDescription string          `gorm:"size:255" json:"paymentStatusDescription,omitempty"`
	CreatedAt                time.Time       `json:"createdAt"`
	UpdatedAt                time.Time       `json:"updatedAt"`
	CompletedAt              *time.Time      `json:"completedAt"`
}

func (Payment) TableName() string {
	return "payments"
}
