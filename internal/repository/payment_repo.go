package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrNoReference        = errors.New("order id or merchant reference required")
	ErrNoTrackingID       = errors.New("order tracking id required")
	ErrAmbiguousReference = errors.New("reference matches more than one payment")
)

// Reference identifies a payment by local order id, gateway merchant reference, or both.
// When OrderTrackingID is set the payment must also carry that tracking id.
type Reference struct {
	OrderTrackingID   string
	OrderID           string
	MerchantReference string
}

func (r Reference) Empty() bool {
	return r.OrderID == "" && r.MerchantReference == ""
}

// StatusUpdate is the reconciled state written onto a payment.
type StatusUpdate struct {
	Status                   string
	PaymentMethod            string
	ConfirmationCode         string
	PaymentStatusDescription string
	At                       time.Time
}

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindByReference returns the newest payment matching either key of ref.
func (r *PaymentRepository) FindByReference(ctx context.Context, ref Reference) (*models.Payment, error) {
	q, ok := matchReference(r.db.WithContext(ctx), ref)
	if !ok {
		return nil, ErrNoReference
	}
	var p models.Payment
	if err := q.Order("created_at DESC").First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ApplyStatus writes upd onto the payment carrying ref.OrderTrackingID and either key
// of ref, in one UPDATE statement, and returns the number of rows changed (0 or 1).
// completed_at keeps its first value while the status stays completed and is cleared
// for any other status.
func (r *PaymentRepository) ApplyStatus(ctx context.Context, ref Reference, upd StatusUpdate) (int64, error) {
	if ref.OrderTrackingID == "" {
		return 0, ErrNoTrackingID
	}
	if ref.Empty() {
		return 0, ErrNoReference
	}
	if upd.At.IsZero() {
		upd.At = time.Now()
	}
	var completedAt any
	if upd.Status == domain.PaymentStatusCompleted {
		completedAt = gorm.Expr("COALESCE(completed_at, ?)", upd.At)
	}
	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, _ := matchReference(tx.Model(&models.Payment{}), ref)
		res := q.Updates(map[string]any{
			"status":                     upd.Status,
			"payment_method":             upd.PaymentMethod,
			"confirmation_code":          upd.ConfirmationCode,
			"payment_status_description": upd.PaymentStatusDescription,
			"updated_at":                 upd.At,
			"completed_at":               completedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 1 {
			return fmt.Errorf("%w: %d rows for order_tracking_id=%s", ErrAmbiguousReference, res.RowsAffected, ref.OrderTrackingID)
		}
		rows = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}

func matchReference(q *gorm.DB, ref Reference) (*gorm.DB, bool) {
	switch {
	case ref.OrderID != "" && ref.MerchantReference != "":
		q = q.Where("(order_id = ? OR merchant_reference = ?)", ref.OrderID, ref.MerchantReference)
	case ref.OrderID != "":
		q = q.Where("order_id = ?", ref.OrderID)
	case ref.MerchantReference != "":
		q = q.Where("merchant_reference = ?", ref.MerchantReference)
	default:
		return q, false
	}
	if ref.OrderTrackingID != "" {
		q = q.Where("order_tracking_id = ?", ref.OrderTrackingID)
	}
	return q, true
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
