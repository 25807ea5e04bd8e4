package processor

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/stripe/stripe-go/v72"
)

// Provider builds one Client per secret key and reuses it.
type Provider struct {
	backends *stripe.Backends

	mu      sync.Mutex
	clients map[string]*Client
}

type Option func(*stripe.BackendConfig)

// WithURL points the client at a different API host, such as a local stub.
func WithURL(url string) Option {
	return func(c *stripe.BackendConfig) {
		c.URL = stripe.String(url)
	}
}

func NewProvider(timeout time.Duration, logger *slog.Logger, opts ...Option) *Provider {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		LeveledLogger:     leveledLogger{logger: logger},
		MaxNetworkRetries: stripe.Int64(0),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// GetBackendWithConfig fills in defaults on the config it is given.
	backend := func(t stripe.SupportedBackend) stripe.Backend {
		c := *cfg
		return stripe.GetBackendWithConfig(t, &c)
	}
	backends := &stripe.Backends{
		API:     backend(stripe.APIBackend),
		Connect: backend(stripe.ConnectBackend),
		Uploads: backend(stripe.UploadsBackend),
	}

	return &Provider{
		backends: backends,
		clients:  make(map[string]*Client),
	}
}

func (p *Provider) ForConfig(cfg domain.PaymentConfiguration) application.Processor {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.clients[cfg.SecretKey]
	if !ok {
		c = newClient(cfg.SecretKey, p.backends)
		p.clients[cfg.SecretKey] = c
	}
	return c
}
