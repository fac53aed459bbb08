package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/models"
	"bookstore/internal/repository"
	"bookstore/pkg/pesapal"

	"github.com/google/uuid"
)

const (
	// IPNPath is where the gateway delivers payment notifications, relative to the public origin.
	IPNPath = "/api/pesapal/ipn"
	// CheckoutCallbackPath is where the buyer lands after hosted checkout.
	CheckoutCallbackPath = "/payment/callback"
)

// Buyer is what the storefront sends about the purchasing user.
type Buyer struct {
	ID          string
	Email       string
	Name        string
	Phone       string
	CountryCode string
}

type CreateOrderInput struct {
	BookID string
	Buyer  Buyer
	Origin string // public origin used to build the callback and IPN URLs
}

type CreateOrderResult struct {
	OrderID           string
	OrderTrackingID   string
	MerchantReference string
	RedirectURL       string
	Payment           *models.Payment
}

type OrderService struct {
	books           *repository.BookRepository
	payments        *repository.PaymentRepository
	gateway         Gateway
	events          EventPublisher
	currency        string
	now             func() time.Time
	persistAttempts int
	persistBackoff  time.Duration
}

func NewOrderService(
	books *repository.BookRepository,
	payments *repository.PaymentRepository,
	gateway Gateway,
	events EventPublisher,
	currency string,
) *OrderService {
	if events == nil {
		events = NopPublisher{}
	}
	if currency == "" {
		currency = "UGX"
	}
	return &OrderService{
		books:           books,
		payments:        payments,
		gateway:         gateway,
		events:          events,
		currency:        strings.ToUpper(currency),
		now:             time.Now,
		persistAttempts: 3,
		persistBackoff:  200 * time.Millisecond,
	}
}

// NewOrderID builds BOOK-<bookId>-<unix ms>.
func NewOrderID(bookID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", domain.OrderIDPrefix, bookID, at.UnixMilli())
}

// CreateOrder submits a hosted-checkout order for the book and stores a pending payment.
// Nothing is stored when the gateway rejects the order.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	in.BookID = strings.TrimSpace(in.BookID)
	in.Buyer.ID = strings.TrimSpace(in.Buyer.ID)
	in.Buyer.Email = strings.TrimSpace(in.Buyer.Email)
	if in.BookID == "" || in.Buyer.ID == "" || in.Buyer.Email == "" {
		return nil, domain.Validation("bookId, user.id and user.email are required")
	}
	book, err := s.books.GetByID(ctx, in.BookID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("Book not found")
		}
		return nil, domain.Internal("Failed to load book", err)
	}
	if book.IsFree {
		return nil, domain.InvalidState("This book is free and does not require payment")
	}
	if !book.Price.IsPositive() {
		return nil, domain.InvalidState("This book does not have a valid price")
	}

	origin := strings.TrimRight(in.Origin, "/")
	orderID := NewOrderID(book.ID, s.now())
	log.Printf("[ORDER] create order_id=%s book_id=%s user_id=%s amount=%s %s", orderID, book.ID, in.Buyer.ID, book.Price.String(), s.currency)

	ipnID, err := s.gateway.EnsureIPNID(ctx, origin+IPNPath)
	if err != nil {
		return nil, gatewayError(err, domain.KindIPNRegistration)
	}
	resp, err := s.gateway.SubmitOrder(ctx, pesapal.OrderRequest{
		ID:             orderID,
		Currency:       s.currency,
		Amount:         book.Price,
		Description:    orderDescription(book),
		CallbackURL:    origin + CheckoutCallbackPath,
		NotificationID: ipnID,
		BillingAddress: pesapal.NewBillingAddress(in.Buyer.Email, in.Buyer.Phone, in.Buyer.CountryCode, in.Buyer.Name),
	})
	if err != nil {
		log.Printf("[ORDER] submit failed order_id=%s: %v", orderID, err)
		return nil, gatewayError(err, domain.KindGatewaySubmission)
	}

	now := s.now()
	p := &models.Payment{
		ID:                uuid.NewString(),
		UserID:            in.Buyer.ID,
		BookID:            book.ID,
		OrderID:           orderID,
		OrderTrackingID:   resp.OrderTrackingID,
		MerchantReference: resp.MerchantReference,
		Amount:            book.Price,
		Currency:          s.currency,
		Status:            domain.PaymentStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.persist(ctx, p); err != nil {
		// The gateway now holds an order with no local record.
		log.Printf("[ORDER] ORPHANED remote order order_id=%s order_tracking_id=%s merchant_reference=%s: %v",
			orderID, resp.OrderTrackingID, resp.MerchantReference, err)
		ev := newPaymentEvent(domain.EventPaymentOrphaned, p, s.now())
		ev.Reason = err.Error()
		publish(context.WithoutCancel(ctx), s.events, ev)
		return nil, domain.Internal("Failed to save payment record", err)
	}
	publish(ctx, s.events, newPaymentEvent(domain.EventPaymentCreated, p, now))

	return &CreateOrderResult{
		OrderID:           orderID,
		OrderTrackingID:   resp.OrderTrackingID,
		MerchantReference: resp.MerchantReference,
		RedirectURL:       resp.RedirectURL,
		Payment:           p,
	}, nil
}

// persist inserts p, retrying a bounded number of times. A row that already exists
// for the same order and tracking id counts as success.
func (s *OrderService) persist(ctx context.Context, p *models.Payment) error {
	attempts := s.persistAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.payments.Create(ctx, p); err == nil {
			return nil
		}
		if existing, getErr := s.payments.GetByOrderID(ctx, p.OrderID); getErr == nil && existing.OrderTrackingID == p.OrderTrackingID {
			*p = *existing
			return nil
		}
		log.Printf("[ORDER] persist attempt %d/%d order_id=%s: %v", attempt, attempts, p.OrderID, err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(s.persistBackoff * time.Duration(attempt)):
		}
	}
	return err
}

func orderDescription(b *models.Book) string {
	if b.Author == "" {
		return pesapal.Description("Purchase of " + b.Title)
	}
	return pesapal.Description(fmt.Sprintf("Purchase of %s by %s", b.Title, b.Author))
}
