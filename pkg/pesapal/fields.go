package pesapal

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Field is a logical field the gateway spells in more than one way.
type Field int

const (
	FieldOrderTrackingID Field = iota
	FieldMerchantReference
	FieldOrderID
	FieldRedirectURL
	FieldIPNID
	FieldNotificationType
)

// fieldAliases lists every spelling accepted for a field, in lookup order. Gateway
// response bodies and IPN query strings are both resolved through this table.
var fieldAliases = map[Field][]string{
	FieldOrderTrackingID:   {"order_tracking_id", "OrderTrackingId", "orderTrackingId", "orderTrackingID"},
	FieldMerchantReference: {"merchant_reference", "OrderMerchantReference", "orderMerchantReference", "merchantReference", "merchant_ref"},
	FieldOrderID:           {"orderId", "OrderId", "order_id"},
	FieldRedirectURL:       {"redirect_url", "redirectUrl", "RedirectUrl"},
	FieldIPNID:             {"ipn_id", "ipnId", "IPNID", "notification_id", "id"},
	FieldNotificationType:  {"OrderNotificationType", "orderNotificationType", "order_notification_type"},
}

// Resolve returns the first non-empty value of f found through get.
// get is typically gin's c.Query or a lookup over a decoded JSON body.
func Resolve(f Field, get func(key string) string) string {
	for _, key := range fieldAliases[f] {
		if v := strings.TrimSpace(get(key)); v != "" {
			return v
		}
	}
	return ""
}

// FromMap adapts a decoded JSON object for Resolve. Numbers are formatted without exponent.
func FromMap(m map[string]any) func(string) string {
	return func(key string) string {
		switch v := m[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		default:
			return ""
		}
	}
}

// flexString decodes a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(b)
	return nil
}

// flexInt decodes a JSON number or a numeric string; anything else decodes to -1.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*n = -1
		return nil
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*n = -1
		return nil
	}
	*n = flexInt(int(f))
	return nil
}

// errorField is the gateway's "error" member: null, a string, or
// {"error_type": ..., "code": ..., "message": ...}.
type errorField struct {
	Type    string
	Code    string
	Message string
}

func (e *errorField) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.Message)
	}
	var obj struct {
		Type    flexString `json:"error_type"`
		Code    flexString `json:"code"`
		Message flexString `json:"message"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	e.Type, e.Code, e.Message = string(obj.Type), string(obj.Code), string(obj.Message)
	return nil
}

func (e errorField) present() bool {
	return e.Message != "" || e.Code != "" || e.Type != ""
}

func (e errorField) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	default:
		return e.Type
	}
}

// envelope holds the members every gateway response may carry.
type envelope struct {
	Error   errorField `json:"error"`
	Status  flexString `json:"status"`
	Message flexString `json:"message"`
}

// failure reports whether the body describes an error even when the HTTP status was 2xx.
func (e envelope) failure() bool {
	if e.Error.present() {
		return true
	}
	s := string(e.Status)
	return s != "" && s != "200" && !strings.HasPrefix(s, "2")
}

// gatewayMessage picks the most specific message from the body, or fallback.
func (e envelope) gatewayMessage(fallback string) string {
	if e.Error.present() {
		return e.Error.text()
	}
	if e.Message != "" {
		return string(e.Message)
	}
	return fallback
}
