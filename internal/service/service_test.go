package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookstore/internal/models"
	"bookstore/internal/repository"
	"bookstore/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []PaymentEvent
}

func (r *recordingPublisher) Publish(_ context.Context, e PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
}

func (r *recordingNotifier) NotifyPayment(_ *models.Payment, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

type fixture struct {
	db        *gorm.DB
	stub      *testutil.PesapalStub
	books     *repository.BookRepository
	payments  *repository.PaymentRepository
	notes     *repository.NotificationRepository
	events    *recordingPublisher
	notifier  *recordingNotifier
	orders    *OrderService
	reconcile *ReconcileService
}

var fixedNow = time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       testutil.NewDB(t),
		stub:     testutil.NewPesapalStub(t),
		events:   &recordingPublisher{},
		notifier: &recordingNotifier{},
	}
	f.books = repository.NewBookRepository(f.db)
	f.payments = repository.NewPaymentRepository(f.db)
	f.notes = repository.NewNotificationRepository(f.db)
	gateway := f.stub.Client("")
	f.orders = NewOrderService(f.books, f.payments, gateway, f.events, "ugx")
	f.orders.now = func() time.Time { return fixedNow }
	f.orders.persistBackoff = 0
	f.reconcile = NewReconcileService(f.payments, f.notes, gateway, f.events, f.notifier)
	f.reconcile.now = func() time.Time { return fixedNow.Add(time.Minute) }
	return f
}

// createPending runs a successful checkout for book_1 and returns the stored payment.
func (f *fixture) createPending(t *testing.T) *models.Payment {
	t.Helper()
	testutil.SeedBook(t, f.db, "book_1", 15000)
	res, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		BookID: "book_1",
		Buyer:  Buyer{ID: "u1", Email: "a@b.com"},
		Origin: "https://shop.test",
	})
	require.NoError(t, err)
	return res.Payment
}
