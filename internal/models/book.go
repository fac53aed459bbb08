package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is owned by the catalogue; the payment flow only reads it.
type Book struct {
	ID            string          `gorm:"primaryKey;size:191" json:"id"`
	Title         string          `gorm:"size:255;not null" json:"title"`
	Author        string          `gorm:"size:255" json:"author"`
	IsFree        bool            `gorm:"not null;default:false" json:"isFree"`
	Price         decimal.Decimal `gorm:"type:numeric(14,2)" json:"price"`
	PDFPublicID   string          `gorm:"column:pdf_public_id;size:255" json:"-"`
	CoverPublicID string          `gorm:"size:255" json:"coverPublicId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (Book) TableName() string {
	return "books"
}
