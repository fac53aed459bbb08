package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/models"
	"bookstore/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPayments(t *testing.T, f *fixture) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&n).Error)
	return n
}

func TestNewOrderID(t *testing.T) {
	assert.Equal(t, "BOOK-book_1-1771061400000", NewOrderID("book_1", fixedNow))
}

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)
	f.createPending(t)

	var stored models.Payment
	require.NoError(t, f.db.First(&stored).Error)
	assert.Equal(t, "BOOK-book_1-1771061400000", stored.OrderID)
	assert.Equal(t, "T1", stored.OrderTrackingID)
	assert.Equal(t, "M1", stored.MerchantReference)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, "UGX", stored.Currency)
	assert.Equal(t, "u1", stored.UserID)
	assert.Nil(t, stored.CompletedAt)
	assert.Equal(t, int64(1), countPayments(t, f))

	body := f.stub.LastSubmit()
	assert.Equal(t, "https://shop.test/payment/callback", body["callback_url"])
	assert.Equal(t, "ipn-1", body["notification_id"])
	assert.Equal(t, "Purchase of The River Between by Ngugi wa Thiong'o", body["description"])
	assert.Equal(t, "https://shop.test/api/pesapal/ipn", f.stub.LastIPN()["url"])
	assert.Equal(t, []string{domain.EventPaymentCreated}, f.events.Types())
}

func TestCreateOrder_ReusesIPNRegistration(t *testing.T) {
	f := newFixture(t)
	f.createPending(t)
	f.orders.now = func() time.Time { return fixedNow.Add(time.Millisecond) }
	res, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		BookID: "book_1",
		Buyer:  Buyer{ID: "u2", Email: "c@d.com"},
		Origin: "https://shop.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "BOOK-book_1-1771061400001", res.OrderID)
	assert.Equal(t, 1, f.stub.Calls(testutil.StubIPN))
	assert.Equal(t, 1, f.stub.Calls(testutil.StubAuth))
	assert.Equal(t, 2, f.stub.Calls(testutil.StubSubmit))
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.Book{ID: "free_1", Title: "Free", IsFree: true, Price: decimal.Zero}).Error)
	require.NoError(t, f.db.Create(&models.Book{ID: "zero_1", Title: "Zero", Price: decimal.Zero}).Error)

	tests := []struct {
		name string
		in   CreateOrderInput
		kind domain.Kind
		msg  string
	}{
		{"missing book id", CreateOrderInput{Buyer: Buyer{ID: "u1", Email: "a@b.com"}}, domain.KindValidation, ""},
		{"missing user id", CreateOrderInput{BookID: "free_1", Buyer: Buyer{Email: "a@b.com"}}, domain.KindValidation, ""},
		{"missing email", CreateOrderInput{BookID: "free_1", Buyer: Buyer{ID: "u1"}}, domain.KindValidation, ""},
		{"unknown book", CreateOrderInput{BookID: "nope", Buyer: Buyer{ID: "u1", Email: "a@b.com"}}, domain.KindNotFound, "Book not found"},
		{"free book", CreateOrderInput{BookID: "free_1", Buyer: Buyer{ID: "u1", Email: "a@b.com"}}, domain.KindInvalidState, ""},
		{"zero price", CreateOrderInput{BookID: "zero_1", Buyer: Buyer{ID: "u1", Email: "a@b.com"}}, domain.KindInvalidState, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, domain.PublicMessage(err))
			}
		})
	}
	assert.Zero(t, countPayments(t, f))
	assert.Zero(t, f.stub.Calls(testutil.StubAuth), "no gateway call for rejected input")
}

func TestCreateOrder_SubmitFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	seedPaidBook(t, f)
	f.stub.SetSubmit(http.StatusInternalServerError, `{"error":{"code":"payment_details_invalid","message":"Invalid amount"},"status":"500"}`)

	_, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		BookID: "book_1",
		Buyer:  Buyer{ID: "u1", Email: "a@b.com"},
		Origin: "https://shop.test",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindGatewaySubmission, domain.KindOf(err))
	assert.Equal(t, "Invalid amount", domain.PublicMessage(err))
	assert.Zero(t, countPayments(t, f))
	assert.Empty(t, f.events.Types())
}

func TestCreateOrder_AuthAndIPNFailuresKeepTheirKind(t *testing.T) {
	t.Run("authentication", func(t *testing.T) {
		f := newFixture(t)
		seedPaidBook(t, f)
		f.stub.SetAuth(http.StatusUnauthorized, `{"error":{"message":"Invalid consumer key"}}`)
		_, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{BookID: "book_1", Buyer: Buyer{ID: "u1", Email: "a@b.com"}})
		assert.Equal(t, domain.KindAuthentication, domain.KindOf(err))
		assert.Equal(t, "Invalid consumer key", domain.PublicMessage(err))
	})
	t.Run("ipn registration", func(t *testing.T) {
		f := newFixture(t)
		seedPaidBook(t, f)
		f.stub.SetIPN(`{"status":"200"}`)
		_, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{BookID: "book_1", Buyer: Buyer{ID: "u1", Email: "a@b.com"}})
		assert.Equal(t, domain.KindIPNRegistration, domain.KindOf(err))
		assert.Zero(t, f.stub.Calls(testutil.StubSubmit))
	})
}

func TestCreateOrder_PersistFailurePublishesOrphan(t *testing.T) {
	f := newFixture(t)
	seedPaidBook(t, f)
	require.NoError(t, f.db.Migrator().DropTable(&models.Payment{}))

	_, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		BookID: "book_1",
		Buyer:  Buyer{ID: "u1", Email: "a@b.com"},
		Origin: "https://shop.test",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Equal(t, "Failed to save payment record", domain.PublicMessage(err))
	assert.Equal(t, []string{domain.EventPaymentOrphaned}, f.events.Types())
	assert.Equal(t, "T1", f.events.events[0].OrderTrackingID)
	assert.NotEmpty(t, f.events.events[0].Reason)
}

func seedPaidBook(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.Book{ID: "book_1", Title: "Petals of Blood", Price: decimal.NewFromInt(15000)}).Error)
}
