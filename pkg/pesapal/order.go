package pesapal

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength is the longest order description the gateway accepts.
const MaxDescriptionLength = 100

// BillingAddress is sent with every order. The gateway requires all keys to be
// present, so unknown values are sent as empty strings rather than omitted.
type BillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number"`
	CountryCode  string `json:"country_code"`
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name"`
	LastName     string `json:"last_name"`
	Line1        string `json:"line_1"`
	Line2        string `json:"line_2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	ZipCode      string `json:"zip_code"`
}

// NewBillingAddress fills the address from what a buyer supplied. The name is split
// on its first space into first and last name.
func NewBillingAddress(email, phone, countryCode, name string) BillingAddress {
	first, last := SplitName(name)
	return BillingAddress{
		EmailAddress: email,
		PhoneNumber:  phone,
		CountryCode:  countryCode,
		FirstName:    first,
		LastName:     last,
	}
}

// SplitName splits on the first space: "Ada King Lovelace" -> "Ada", "King Lovelace".
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

// Description trims s to what the gateway accepts.
func Description(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > MaxDescriptionLength {
		return string(r[:MaxDescriptionLength])
	}
	return s
}

type OrderRequest struct {
	ID             string
	Currency       string
	Amount         decimal.Decimal
	Description    string
	CallbackURL    string
	NotificationID string
	BillingAddress BillingAddress
}

type submitOrderBody struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         float64        `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress BillingAddress `json:"billing_address"`
}

type OrderResponse struct {
	OrderTrackingID   string
	MerchantReference string
	RedirectURL       string
}

// SubmitOrder creates a hosted-checkout order and returns the ids the gateway assigned.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	body := submitOrderBody{
		ID:             req.ID,
		Currency:       req.Currency,
		Amount:         req.Amount.InexactFloat64(),
		Description:    Description(req.Description),
		CallbackURL:    req.CallbackURL,
		NotificationID: req.NotificationID,
		BillingAddress: req.BillingAddress,
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log.Printf("[PESAPAL] POST %s id=%s amount=%s %s callback=%s", pathSubmitOrder, req.ID, req.Amount.String(), req.Currency, req.CallbackURL)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		Post(pathSubmitOrder)
	if err != nil {
		return nil, transportError(OpSubmit, err)
	}
	var env envelope
	var fields map[string]any
	_ = json.Unmarshal(resp.Body(), &env)
	decodeErr := json.Unmarshal(resp.Body(), &fields)
	if resp.IsError() || env.failure() {
		log.Printf("[PESAPAL] submit failed id=%s status=%d body=%s", req.ID, resp.StatusCode(), string(resp.Body()))
		return nil, &Error{Op: OpSubmit, StatusCode: resp.StatusCode(), Message: env.gatewayMessage("order submission failed: " + http.StatusText(resp.StatusCode()))}
	}
	if decodeErr != nil {
		return nil, &Error{Op: OpSubmit, StatusCode: resp.StatusCode(), Message: "invalid order submission response", Err: decodeErr}
	}
	get := FromMap(fields)
	out := &OrderResponse{
		OrderTrackingID:   Resolve(FieldOrderTrackingID, get),
		MerchantReference: Resolve(FieldMerchantReference, get),
		RedirectURL:       Resolve(FieldRedirectURL, get),
	}
	if out.OrderTrackingID == "" || out.RedirectURL == "" {
		return nil, &Error{Op: OpSubmit, StatusCode: resp.StatusCode(), Message: env.gatewayMessage("order submission response did not include a tracking id")}
	}
	log.Printf("[PESAPAL] order submitted id=%s order_tracking_id=%s merchant_reference=%s", req.ID, out.OrderTrackingID, out.MerchantReference)
	return out, nil
}
