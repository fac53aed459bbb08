package pesapal

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

// DefaultTokenTTL is how long a token is reused. The gateway issues tokens valid for
// five minutes; reusing them for four leaves room for clock skew.
const DefaultTokenTTL = 4 * time.Minute

// TokenCache holds one bearer token and the time it stops being reused.
// Refresh happens under the lock so concurrent callers share a single fetch.
type TokenCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	token     string
	expiresAt time.Time
}

func NewTokenCache(ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCache{ttl: ttl, now: time.Now}
}

// Get returns the cached token while it is fresh, otherwise calls fetch and caches the result.
func (tc *TokenCache) Get(ctx context.Context, fetch func(context.Context) (string, error)) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.token != "" && tc.now().Before(tc.expiresAt) {
		return tc.token, nil
	}
	token, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	tc.token = token
	tc.expiresAt = tc.now().Add(tc.ttl)
	return token, nil
}

// Reset drops the cached token.
func (tc *TokenCache) Reset() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.token = ""
	tc.expiresAt = time.Time{}
}

type tokenRequest struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
}

type tokenResponse struct {
	envelope
	Token      string `json:"token"`
	ExpiryDate string `json:"expiryDate"`
}

// Token returns a bearer token for gateway calls, authenticating only when the cached one is stale.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.consumerKey == "" || c.consumerSecret == "" {
		return "", ErrMissingCredentials
	}
	return c.tokens.Get(ctx, c.requestToken)
}

func (c *Client) requestToken(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log.Printf("[PESAPAL] POST %s", pathRequestToken)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(tokenRequest{ConsumerKey: c.consumerKey, ConsumerSecret: c.consumerSecret}).
		Post(pathRequestToken)
	if err != nil {
		return "", transportError(OpAuth, err)
	}
	var out tokenResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if resp.IsError() {
		log.Printf("[PESAPAL] auth failed status=%d body=%s", resp.StatusCode(), string(resp.Body()))
		return "", &Error{Op: OpAuth, StatusCode: resp.StatusCode(), Message: out.gatewayMessage(http.StatusText(resp.StatusCode()))}
	}
	if decodeErr != nil {
		return "", &Error{Op: OpAuth, StatusCode: resp.StatusCode(), Message: "invalid authentication response", Err: decodeErr}
	}
	if out.failure() || out.Token == "" {
		log.Printf("[PESAPAL] auth rejected body=%s", string(resp.Body()))
		return "", &Error{Op: OpAuth, StatusCode: resp.StatusCode(), Message: out.gatewayMessage("authentication response did not include a token")}
	}
	return out.Token, nil
}
