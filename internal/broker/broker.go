// Package broker holds the authenticated session to the brokerage provider
// and the providers that can back it.
package broker

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"brokerdesk/internal/config"
)

// Provider is the part of the Alpaca trading API brokerdesk uses. The Alpaca
// SDK client satisfies it directly.
type Provider interface {
	// GetAccount returns the account snapshot.
	GetAccount() (*alpaca.Account, error)

	// GetPositions returns every open position.
	GetPositions() ([]alpaca.Position, error)

	// GetOrders lists orders matching the request filter.
	GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error)

	// PlaceOrder submits a new order.
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

// Compile-time interface check.
var _ Provider = (*alpaca.Client)(nil)

// Session is the single authenticated handle to the provider. It is never
// modified after construction, so one Session may be shared by concurrent
// request handlers as long as its Provider is safe for concurrent use (the
// Alpaca client is).
type Session struct {
	name     string
	endpoint string
	provider Provider
}

// Option customises Open.
type Option func(*sessionOptions)

type sessionOptions struct {
	timeout    time.Duration
	httpClient *http.Client
}

// defaultTimeout matches the SDK's own client timeout.
const defaultTimeout = 10 * time.Second

// WithTimeout bounds each provider request. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(o *sessionOptions) { o.timeout = d }
}

// WithHTTPClient replaces the HTTP client used for provider calls. Its
// transport is wrapped, not modified.
func WithHTTPClient(c *http.Client) Option {
	return func(o *sessionOptions) { o.httpClient = c }
}

// Open builds a Session against the Alpaca REST API. No request is made
// here: bad credentials or a malformed endpoint surface on the first call.
func Open(creds config.Credentials, opts ...Option) *Session {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		timeout := o.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    creds.KeyID,
		APISecret: creds.SecretKey,
		BaseURL:   creds.BaseURL,
		// One attempt per operation: never replay a throttled request.
		RetryLimit: -1,
		HTTPClient: wrapClient(httpClient),
	})

	return &Session{
		name:     config.ProviderAlpaca,
		endpoint: creds.BaseURL,
		provider: client,
	}
}

// OpenProvider builds the Session selected by p. Credentials are required
// for every provider, including the simulator.
func OpenProvider(p config.Provider, creds config.Credentials) (*Session, error) {
	switch p.Name {
	case "", config.ProviderAlpaca:
		return Open(creds, WithTimeout(p.Timeout)), nil
	case config.ProviderSimulator:
		sess := NewSession(config.ProviderSimulator, NewSimulator())
		sess.endpoint = "memory"
		return sess, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Name)
	}
}

// NewSession wraps an arbitrary provider, such as the Simulator.
func NewSession(name string, p Provider) *Session {
	return &Session{name: name, provider: p}
}

// Name returns the provider identifier (e.g. "alpaca", "simulator").
func (s *Session) Name() string { return s.name }

// Endpoint returns the base URL the session talks to, empty for in-process
// providers.
func (s *Session) Endpoint() string { return s.endpoint }

// Provider returns the underlying provider.
func (s *Session) Provider() Provider { return s.provider }
