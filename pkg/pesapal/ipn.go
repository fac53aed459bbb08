package pesapal

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
)

// IPNRegistrar remembers the notification id the gateway uses to call us back.
// A pinned id is returned as is; otherwise the first registration is reused
// for the life of the process.
type IPNRegistrar struct {
	mu     sync.Mutex
	pinned string
	cached string
}

func NewIPNRegistrar(pinned string) *IPNRegistrar {
	return &IPNRegistrar{pinned: pinned}
}

func (r *IPNRegistrar) Get(ctx context.Context, register func(context.Context) (string, error)) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pinned != "" {
		return r.pinned, nil
	}
	if r.cached != "" {
		return r.cached, nil
	}
	id, err := register(ctx)
	if err != nil {
		return "", err
	}
	r.cached = id
	return id, nil
}

func (r *IPNRegistrar) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = ""
}

type registerIPNRequest struct {
	URL                 string `json:"url"`
	IPNNotificationType string `json:"ipn_notification_type"`
}

// EnsureIPNID returns the notification id to attach to orders, registering
// callbackURL with the gateway only when no id is pinned or cached.
func (c *Client) EnsureIPNID(ctx context.Context, callbackURL string) (string, error) {
	return c.ipn.Get(ctx, func(ctx context.Context) (string, error) {
		return c.RegisterIPN(ctx, callbackURL)
	})
}

// RegisterIPN registers callbackURL for GET notifications and returns the assigned id.
// It always calls the gateway.
func (c *Client) RegisterIPN(ctx context.Context, callbackURL string) (string, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log.Printf("[PESAPAL] POST %s url=%s", pathRegisterIPN, callbackURL)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(registerIPNRequest{URL: callbackURL, IPNNotificationType: "GET"}).
		Post(pathRegisterIPN)
	if err != nil {
		return "", transportError(OpIPN, err)
	}
	var env envelope
	var fields map[string]any
	_ = json.Unmarshal(resp.Body(), &env)
	decodeErr := json.Unmarshal(resp.Body(), &fields)
	if resp.IsError() || env.failure() {
		log.Printf("[PESAPAL] ipn registration failed status=%d body=%s", resp.StatusCode(), string(resp.Body()))
		return "", &Error{Op: OpIPN, StatusCode: resp.StatusCode(), Message: env.gatewayMessage("IPN registration failed: " + http.StatusText(resp.StatusCode()))}
	}
	if decodeErr != nil {
		return "", &Error{Op: OpIPN, StatusCode: resp.StatusCode(), Message: "invalid IPN registration response", Err: decodeErr}
	}
	id := Resolve(FieldIPNID, FromMap(fields))
	if id == "" {
		return "", &Error{Op: OpIPN, StatusCode: resp.StatusCode(), Message: "IPN registration response did not include an id"}
	}
	log.Printf("[PESAPAL] ipn registered id=%s url=%s", id, callbackURL)
	return id, nil
}
