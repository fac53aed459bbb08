package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/models"
	"bookstore/internal/repository"
	"bookstore/pkg/pesapal"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StatusNotifier is told about every payment a reconciliation touched.
type StatusNotifier interface {
	NotifyPayment(p *models.Payment, paymentStatus string)
}

type VerifyInput struct {
	OrderTrackingID   string
	OrderID           string
	MerchantReference string
	UserID            string // when set, the payment must belong to this user
}

type VerifyResult struct {
	Payment       *models.Payment
	Status        *pesapal.TransactionStatus
	PaymentStatus string
}

type IPNInput struct {
	OrderTrackingID   string
	OrderID           string
	MerchantReference string
	NotificationType  string
}

type IPNResult struct {
	Matched bool
	Payment *models.Payment
	Status  *pesapal.TransactionStatus
}

// ReconcileService refreshes payments from the gateway's view of an order.
// Verify and HandleIPN share the same fetch-then-update path; Status only reads.
type ReconcileService struct {
	payments      *repository.PaymentRepository
	notifications *repository.NotificationRepository
	gateway       Gateway
	events        EventPublisher
	notifier      StatusNotifier
	now           func() time.Time
}

func NewReconcileService(
	payments *repository.PaymentRepository,
	notifications *repository.NotificationRepository,
	gateway Gateway,
	events EventPublisher,
	notifier StatusNotifier,
) *ReconcileService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ReconcileService{
		payments:      payments,
		notifications: notifications,
		gateway:       gateway,
		events:        events,
		notifier:      notifier,
		now:           time.Now,
	}
}

// Status returns the gateway status of an order without touching local records.
func (s *ReconcileService) Status(ctx context.Context, orderTrackingID string) (*pesapal.TransactionStatus, error) {
	orderTrackingID = strings.TrimSpace(orderTrackingID)
	if orderTrackingID == "" {
		return nil, domain.Validation("orderTrackingId is required")
	}
	st, err := s.gateway.GetTransactionStatus(ctx, orderTrackingID)
	if err != nil {
		return nil, gatewayError(err, domain.KindStatusFetch)
	}
	return st, nil
}

// Verify reconciles a payment on behalf of the buyer after checkout.
func (s *ReconcileService) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	trackingID := strings.TrimSpace(in.OrderTrackingID)
	ref := repository.Reference{
		OrderTrackingID:   trackingID,
		OrderID:           strings.TrimSpace(in.OrderID),
		MerchantReference: strings.TrimSpace(in.MerchantReference),
	}
	if trackingID == "" {
		return nil, domain.Validation("orderTrackingId is required")
	}
	if ref.Empty() {
		return nil, domain.Validation("orderId or merchantReference is required")
	}
	// Only the owner's payment under this tracking id reaches the gateway.
	existing, err := s.payments.FindByReference(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("Payment record not found")
		}
		return nil, domain.Internal("Failed to load payment record", err)
	}
	if userID := strings.TrimSpace(in.UserID); userID != "" && existing.UserID != userID {
		return nil, domain.NotFound("Payment record not found")
	}
	p, st, err := s.reconcile(ctx, domain.TriggerVerify, ref)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NotFound("Payment record not found")
	}
	return &VerifyResult{Payment: p, Status: st, PaymentStatus: st.Mapped()}, nil
}

// HandleIPN reconciles a payment on a gateway notification. A notification for an
// unknown order is recorded and reported as unmatched, not as an error.
func (s *ReconcileService) HandleIPN(ctx context.Context, in IPNInput) (*IPNResult, error) {
	trackingID := strings.TrimSpace(in.OrderTrackingID)
	ref := repository.Reference{
		OrderTrackingID:   trackingID,
		OrderID:           strings.TrimSpace(in.OrderID),
		MerchantReference: strings.TrimSpace(in.MerchantReference),
	}
	if trackingID == "" || ref.Empty() {
		return nil, domain.Validation("OrderTrackingId and OrderMerchantReference are required")
	}
	log.Printf("[PESAPAL IPN] type=%s order_tracking_id=%s merchant_reference=%s order_id=%s",
		in.NotificationType, trackingID, ref.MerchantReference, ref.OrderID)
	p, st, err := s.reconcile(ctx, domain.TriggerIPN, ref)
	if err != nil {
		return nil, err
	}
	return &IPNResult{Matched: p != nil, Payment: p, Status: st}, nil
}

// reconcile fetches the gateway status of ref.OrderTrackingID and applies it in one
// conditional update. It returns a nil payment when no record matched ref.
func (s *ReconcileService) reconcile(ctx context.Context, trigger string, ref repository.Reference) (*models.Payment, *pesapal.TransactionStatus, error) {
	trackingID := ref.OrderTrackingID
	note := &models.PaymentNotification{
		ID:                uuid.NewString(),
		Trigger:           trigger,
		OrderTrackingID:   trackingID,
		OrderID:           ref.OrderID,
		MerchantReference: ref.MerchantReference,
	}
	st, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if err != nil {
		note.Error = err.Error()
		s.record(ctx, note)
		return nil, nil, gatewayError(err, domain.KindStatusFetch)
	}
	mapped := st.Mapped()
	note.StatusCode = st.Code()
	note.MappedStatus = mapped
	if len(st.Raw) > 0 {
		note.Payload = datatypes.JSON(st.Raw)
	}

	rows, err := s.payments.ApplyStatus(ctx, ref, repository.StatusUpdate{
		Status:                   mapped,
		PaymentMethod:            st.PaymentMethod,
		ConfirmationCode:         st.ConfirmationCode,
		PaymentStatusDescription: st.PaymentStatusDescription,
		At:                       s.now(),
	})
	if err != nil {
		note.Error = err.Error()
		s.record(ctx, note)
		return nil, st, domain.Internal("Failed to update payment record", err)
	}
	if rows == 0 {
		log.Printf("[RECONCILE] %s for unknown order order_tracking_id=%s order_id=%s merchant_reference=%s status=%s",
			trigger, trackingID, ref.OrderID, ref.MerchantReference, mapped)
		s.record(ctx, note)
		return nil, st, nil
	}
	note.Matched = true
	s.record(ctx, note)

	p, err := s.payments.FindByReference(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, st, nil
		}
		return nil, st, domain.Internal("Failed to load payment record", err)
	}
	log.Printf("[RECONCILE] %s order_id=%s order_tracking_id=%s status=%s", trigger, p.OrderID, trackingID, p.Status)
	publish(ctx, s.events, newPaymentEvent(domain.EventPaymentReconciled, p, s.now()))
	if s.notifier != nil {
		s.notifier.NotifyPayment(p, mapped)
	}
	return p, st, nil
}

func (s *ReconcileService) record(ctx context.Context, n *models.PaymentNotification) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		log.Printf("[RECONCILE] failed to record %s notification order_tracking_id=%s: %v", n.Trigger, n.OrderTrackingID, err)
	}
}
