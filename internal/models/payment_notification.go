package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentNotification records one reconciliation trigger (IPN delivery or verify call)
// together with the gateway status it produced. Matched is false for orphan deliveries.
type PaymentNotification struct {
	ID                string         `gorm:"primaryKey;size:36" json:"id"`
	Trigger           string         `gorm:"size:20;not null;index" json:"trigger"`
	OrderTrackingID   string         `gorm:"size:191;index" json:"orderTrackingId"`
	OrderID           string         `gorm:"size:191" json:"orderId"`
	MerchantReference string         `gorm:"size:191" json:"merchantReference"`
	StatusCode        int            `json:"statusCode"`
	MappedStatus      string         `gorm:"size:20" json:"mappedStatus"`
	Matched           bool           `gorm:"not null;default:false;index" json:"matched"`
	Error             string         `gorm:"type:text" json:"error,omitempty"`
	Payload           datatypes.JSON `json:"payload"`
	CreatedAt         time.Time      `json:"createdAt"`
}

func (PaymentNotification) TableName() string {
	return "payment_notifications"
}
