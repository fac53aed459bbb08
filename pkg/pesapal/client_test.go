package pesapal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookstore/internal/testutil"
	"bookstore/pkg/pesapal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_BaseURL(t *testing.T) {
	assert.Equal(t, pesapal.SandboxBaseURL, pesapal.NewClient(pesapal.Options{}).BaseURL())
	assert.Equal(t, pesapal.LiveBaseURL, pesapal.NewClient(pesapal.Options{Live: true}).BaseURL())
	assert.Equal(t, "http://stub", pesapal.NewClient(pesapal.Options{BaseURL: "http://stub/", Live: true}).BaseURL())
}

func TestToken_MissingCredentialsMakesNoCall(t *testing.T) {
	stub := testutil.NewPesapalStub(t)
	c := pesapal.NewClient(pesapal.Options{BaseURL: stub.Server.URL, ConsumerKey: "key"})

	_, err := c.Token(context.Background())
	require.ErrorIs(t, err, pesapal.ErrMissingCredentials)
	_, err = c.SubmitOrder(context.Background(), pesapal.OrderRequest{ID: "BOOK-1-1"})
	require.ErrorIs(t, err, pesapal.ErrMissingCredentials)
	assert.Equal(t, 0, stub.Calls(testutil.StubAuth))
	assert.Equal(t, 0, stub.Calls(testutil.StubSubmit))
}

func TestToken_CachedAcrossCalls(t *testing.T) {
	stub := testutil.NewPesapalStub(t)
	c := stub.Client("")

	for i := 0; i < 3; i++ {
		tok, err := c.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	}
	assert.Equal(t, 1, stub.Calls(testutil.StubAuth))

	c.Reset()
	_, err := c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stub.Calls(testutil.StubAuth))
}

func TestToken_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"http error with message", http.StatusUnauthorized, `{"error":{"code":"invalid_consumer_key_or_secret_provided","message":"Invalid consumer key"}}`, "Invalid consumer key"},
		{"ok status with error payload", http.StatusOK, `{"token":null,"error":{"error_type":"api_error","code":"invalid_api_credentials_provided","message":""},"status":"500"}`, "invalid_api_credentials_provided"},
		{"missing token", http.StatusOK, `{"status":"200"}`, "authentication response did not include a token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := testutil.NewPesapalStub(t)
			stub.SetAuth(tt.status, tt.body)
			_, err := stub.Client("").Token(context.Background())
			var pe *pesapal.Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, pesapal.OpAuth, pe.Op)
			assert.Equal(t, tt.message, pe.Message)
		})
	}
}

func TestEnsureIPNID(t *testing.T) {
	t.Run("pinned id skips the gateway", func(t *testing.T) {
		stub := testutil.NewPesapalStub(t)
		id, err := stub.Client("pinned").EnsureIPNID(context.Background(), "https://shop.test/api/pesapal/ipn")
		require.NoError(t, err)
		assert.Equal(t, "pinned", id)
		assert.Equal(t, 0, stub.Calls(testutil.StubAuth))
		assert.Equal(t, 0, stub.Calls(testutil.StubIPN))
	})

	t.Run("registers once and caches", func(t *testing.T) {
		stub := testutil.NewPesapalStub(t)
		c := stub.Client("")
		for i := 0; i < 2; i++ {
			id, err := c.EnsureIPNID(context.Background(), "https://shop.test/api/pesapal/ipn")
			require.NoError(t, err)
			assert.Equal(t, "ipn-1", id)
		}
		assert.Equal(t, 1, stub.Calls(testutil.StubIPN))
		req := stub.LastIPN()
		assert.Equal(t, "https://shop.test/api/pesapal/ipn", req["url"])
		assert.Equal(t, "GET", req["ipn_notification_type"])
	})

	t.Run("alternate id field", func(t *testing.T) {
		stub := testutil.NewPesapalStub(t)
		stub.SetIPN(`{"notification_id":"n-7","status":"200"}`)
		id, err := stub.Client("").EnsureIPNID(context.Background(), "https://shop.test/ipn")
		require.NoError(t, err)
		assert.Equal(t, "n-7", id)
	})

	t.Run("response without id", func(t *testing.T) {
		stub := testutil.NewPesapalStub(t)
		stub.SetIPN(`{"status":"200"}`)
		_, err := stub.Client("").EnsureIPNID(context.Background(), "https://shop.test/ipn")
		var pe *pesapal.Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, pesapal.OpIPN, pe.Op)
	})
}

func TestSubmitOrder_Payload(t *testing.T) {
	stub := testutil.NewPesapalStub(t)
	c := stub.Client("ipn-1")

	resp, err := c.SubmitOrder(context.Background(), pesapal.OrderRequest{
		ID:             "BOOK-book_1-1700000000000",
		Currency:       "UGX",
		Amount:         decimal.NewFromInt(15000),
		Description:    "Purchase of Weep Not, Child by Ngugi",
		CallbackURL:    "https://shop.test/payment/callback",
		NotificationID: "ipn-1",
		BillingAddress: pesapal.NewBillingAddress("a@b.com", "", "UG", "Ada King Lovelace"),
	})
	require.NoError(t, err)
	assert.Equal(t, "T1", resp.OrderTrackingID)
	assert.Equal(t, "M1", resp.MerchantReference)
	assert.Equal(t, "https://pay.test/iframe?OrderTrackingId=T1", resp.RedirectURL)

	body := stub.LastSubmit()
	assert.Equal(t, "BOOK-book_1-1700000000000", body["id"])
	assert.Equal(t, "UGX", body["currency"])
	assert.EqualValues(t, 15000, body["amount"])
	assert.Equal(t, "ipn-1", body["notification_id"])
	addr, ok := body["billing_address"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"email_address", "phone_number", "country_code", "first_name", "middle_name", "last_name", "line_1", "line_2", "city", "state", "postal_code", "zip_code"} {
		assert.Contains(t, addr, key)
	}
	assert.Equal(t, "Ada", addr["first_name"])
	assert.Equal(t, "King Lovelace", addr["last_name"])
	assert.Equal(t, "", addr["phone_number"])
}

func TestSubmitOrder_GatewayError(t *testing.T) {
	stub := testutil.NewPesapalStub(t)
	stub.SetSubmit(http.StatusOK, `{"order_tracking_id":null,"error":{"error_type":"api_error","code":"duplicate_order_reference","message":"Duplicate order reference"},"status":"500"}`)
	_, err := stub.Client("ipn-1").SubmitOrder(context.Background(), pesapal.OrderRequest{ID: "BOOK-x-1", Amount: decimal.NewFromInt(1)})
	var pe *pesapal.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pesapal.OpSubmit, pe.Op)
	assert.Equal(t, "Duplicate order reference", pe.Message)
}

func TestGetTransactionStatus(t *testing.T) {
	stub := testutil.NewPesapalStub(t)
	stub.SetStatus("T1", testutil.CompletedStatus("M1"))
	c := stub.Client("")

	_, err := c.GetTransactionStatus(context.Background(), " ")
	require.ErrorIs(t, err, pesapal.ErrMissingTrackingID)
	assert.Equal(t, 0, stub.Calls(testutil.StubStatus))

	st, err := c.GetTransactionStatus(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Code())
	assert.Equal(t, pesapal.StatusCompleted, st.Mapped())
	assert.Equal(t, "Visa", st.PaymentMethod)
	assert.Equal(t, "CONF-1", st.ConfirmationCode)
	assert.Equal(t, "M1", st.MerchantReference)
	assert.JSONEq(t, testutil.CompletedStatus("M1"), string(st.Raw))

	_, err = c.GetTransactionStatus(context.Background(), "unknown")
	var pe *pesapal.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pesapal.OpStatus, pe.Op)
	assert.Equal(t, "Invalid order tracking id", pe.Message)
}

func TestTimeoutSurfacesAsStageError(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	c := pesapal.NewClient(pesapal.Options{
		BaseURL:        slow.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Timeout:        50 * time.Millisecond,
	})
	_, err := c.Token(context.Background())
	var pe *pesapal.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, pesapal.OpAuth, pe.Op)
	assert.True(t, pe.Timeout() || errors.Is(err, context.DeadlineExceeded))
}
