package pesapal

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// Payment statuses produced by MapStatusCode.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// MapStatusCode maps the gateway's status_code. Unknown codes stay pending.
func MapStatusCode(code int) string {
	switch code {
	case 0:
		return StatusPending
	case 1:
		return StatusCompleted
	case 2:
		return StatusFailed
	case 3:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// TransactionStatus is the gateway's view of an order. Raw keeps the response body
// so callers can pass it through unchanged.
type TransactionStatus struct {
	envelope
	StatusCode               flexInt    `json:"status_code"`
	PaymentMethod            string     `json:"payment_method"`
	ConfirmationCode         string     `json:"confirmation_code"`
	PaymentStatusDescription string     `json:"payment_status_description"`
	Description              string     `json:"description"`
	Amount                   flexString `json:"amount"`
	Currency                 string     `json:"currency"`
	MerchantReference        string     `json:"merchant_reference"`
	PaymentAccount           string     `json:"payment_account"`
	CreatedDate              string     `json:"created_date"`

	Raw json.RawMessage `json:"-"`
}

func (s *TransactionStatus) Code() int { return int(s.StatusCode) }

// Mapped is the local payment status for this gateway status.
func (s *TransactionStatus) Mapped() string { return MapStatusCode(s.Code()) }

// GetTransactionStatus fetches the current status of a submitted order.
func (c *Client) GetTransactionStatus(ctx context.Context, orderTrackingID string) (*TransactionStatus, error) {
	orderTrackingID = strings.TrimSpace(orderTrackingID)
	if orderTrackingID == "" {
		return nil, ErrMissingTrackingID
	}
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log.Printf("[PESAPAL] GET %s order_tracking_id=%s", pathTransactionSt, orderTrackingID)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("orderTrackingId", orderTrackingID).
		Get(pathTransactionSt)
	if err != nil {
		return nil, transportError(OpStatus, err)
	}
	var out TransactionStatus
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if resp.IsError() || (decodeErr == nil && out.Error.present()) {
		log.Printf("[PESAPAL] status failed order_tracking_id=%s status=%d body=%s", orderTrackingID, resp.StatusCode(), string(resp.Body()))
		return nil, &Error{Op: OpStatus, StatusCode: resp.StatusCode(), Message: out.gatewayMessage("status request failed: " + http.StatusText(resp.StatusCode()))}
	}
	if decodeErr != nil {
		return nil, &Error{Op: OpStatus, StatusCode: resp.StatusCode(), Message: "invalid status response", Err: decodeErr}
	}
	out.Raw = append(json.RawMessage(nil), resp.Body()...)
	return &out, nil
}
