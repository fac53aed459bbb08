package pesapal

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	SandboxBaseURL = "https://cybqa.pesapal.com/pesapalv3"
	LiveBaseURL    = "https://pay.pesapal.com/v3"

	DefaultTimeout = 20 * time.Second
)

const (
	pathRequestToken  = "/api/Auth/RequestToken"
	pathRegisterIPN   = "/api/URLSetup/RegisterIPN"
	pathSubmitOrder   = "/api/Transactions/SubmitOrderRequest"
	pathTransactionSt = "/api/Transactions/GetTransactionStatus"
)

// Options configures a Client. BaseURL overrides the Live switch.
type Options struct {
	BaseURL        string
	Live           bool
	ConsumerKey    string
	ConsumerSecret string
	IPNID          string // pinned notification id; registration is skipped when set
	Timeout        time.Duration
	TokenTTL       time.Duration
}

// Client talks to the Pesapal 3.0 REST API. It owns the token and IPN caches, so
// one Client should be shared by every request handler of the process.
type Client struct {
	http           *resty.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	timeout        time.Duration
	tokens         *TokenCache
	ipn            *IPNRegistrar
}

func NewClient(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = SandboxBaseURL
		if opts.Live {
			base = LiveBaseURL
		}
	}
	base = strings.TrimRight(base, "/")
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &Client{
		http:           hc,
		baseURL:        base,
		consumerKey:    opts.ConsumerKey,
		consumerSecret: opts.ConsumerSecret,
		timeout:        timeout,
		tokens:         NewTokenCache(opts.TokenTTL),
		ipn:            NewIPNRegistrar(opts.IPNID),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Reset clears the cached token and the IPN id obtained by registration.
// A pinned IPN id survives.
func (c *Client) Reset() {
	c.tokens.Reset()
	c.ipn.Reset()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}
