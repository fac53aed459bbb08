package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"bookstore/pkg/pesapal"
)

// PesapalStub is an httptest server speaking the subset of the Pesapal API the client uses.
// Response bodies can be swapped per test; every endpoint counts its calls.
type PesapalStub struct {
	Server *httptest.Server

	mu           sync.Mutex
	authBody     string
	authStatus   int
	ipnBody      string
	submitBody   string
	submitStatus int
	statuses     map[string]string
	calls        map[string]int
	lastSubmit   map[string]any
	lastIPN      map[string]any
}

const (
	StubAuth   = "auth"
	StubIPN    = "ipn"
	StubSubmit = "submit"
	StubStatus = "status"
)

func NewPesapalStub(t *testing.T) *PesapalStub {
	t.Helper()
	s := &PesapalStub{
		authBody:     `{"token":"tok-1","expiryDate":"2030-01-01T00:00:00Z","error":null,"status":"200","message":"Request processed successfully"}`,
		authStatus:   http.StatusOK,
		ipnBody:      `{"url":"https://shop.test/api/pesapal/ipn","ipn_id":"ipn-1","ipn_notification_type_description":"GET","ipn_status_description":"Active","error":null,"status":"200"}`,
		submitBody:   `{"order_tracking_id":"T1","merchant_reference":"M1","redirect_url":"https://pay.test/iframe?OrderTrackingId=T1","error":null,"status":"200"}`,
		submitStatus: http.StatusOK,
		statuses:     make(map[string]string),
		calls:        make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/Auth/RequestToken", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[StubAuth]++
		body, status := s.authBody, s.authStatus
		s.mu.Unlock()
		write(w, status, body)
	})
	mux.HandleFunc("/api/URLSetup/RegisterIPN", func(w http.ResponseWriter, r *http.Request) {
		req := decode(r)
		s.mu.Lock()
		s.calls[StubIPN]++
		s.lastIPN = req
		body := s.ipnBody
		s.mu.Unlock()
		write(w, http.StatusOK, body)
	})
	mux.HandleFunc("/api/Transactions/SubmitOrderRequest", func(w http.ResponseWriter, r *http.Request) {
		req := decode(r)
		s.mu.Lock()
		s.calls[StubSubmit]++
		s.lastSubmit = req
		body, status := s.submitBody, s.submitStatus
		s.mu.Unlock()
		write(w, status, body)
	})
	mux.HandleFunc("/api/Transactions/GetTransactionStatus", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("orderTrackingId")
		s.mu.Lock()
		s.calls[StubStatus]++
		body, ok := s.statuses[id]
		s.mu.Unlock()
		if !ok {
			write(w, http.StatusOK, `{"status_code":"","error":{"error_type":"api_error","code":"invalid_order_tracking_id","message":"Invalid order tracking id"},"status":"500"}`)
			return
		}
		write(w, http.StatusOK, body)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// Client returns a pesapal client with test credentials pointed at the stub.
func (s *PesapalStub) Client(ipnID string) *pesapal.Client {
	return pesapal.NewClient(pesapal.Options{
		BaseURL:        s.Server.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		IPNID:          ipnID,
	})
}

func (s *PesapalStub) SetAuth(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authStatus, s.authBody = status, body
}

func (s *PesapalStub) SetIPN(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ipnBody = body
}

func (s *PesapalStub) SetSubmit(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitStatus, s.submitBody = status, body
}

// SetStatus sets the transaction-status body returned for orderTrackingID.
func (s *PesapalStub) SetStatus(orderTrackingID, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[orderTrackingID] = body
}

func (s *PesapalStub) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// LastSubmit returns the decoded body of the last order submission.
func (s *PesapalStub) LastSubmit() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSubmit
}

func (s *PesapalStub) LastIPN() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastIPN
}

// CompletedStatus is a status body for a settled card payment.
func CompletedStatus(merchantReference string) string {
	return `{"payment_method":"Visa","amount":15000,"created_date":"2026-01-10T10:00:00.000","confirmation_code":"CONF-1","payment_status_description":"Completed","description":"Transaction completed","message":"Request processed successfully","payment_account":"476173**0010","call_back_url":"https://shop.test/payment/callback","status_code":1,"merchant_reference":"` + merchantReference + `","currency":"UGX","error":{"error_type":null,"code":null,"message":null},"status":"200"}`
}

// StatusWithCode is a status body carrying only code and reference.
func StatusWithCode(code int, merchantReference string) string {
	b, _ := json.Marshal(map[string]any{
		"status_code":                code,
		"merchant_reference":         merchantReference,
		"payment_status_description": http.StatusText(http.StatusOK),
		"currency":                   "UGX",
		"status":                     "200",
	})
	return string(b)
}

func write(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func decode(r *http.Request) map[string]any {
	var m map[string]any
	_ = json.NewDecoder(r.Body).Decode(&m)
	return m
}
