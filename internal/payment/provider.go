package payment

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/heic2pdf/backend/internal/model"
)

var (
	ErrInvalidSignature  = errors.New("webhook signature verification failed")
	ErrMalformedPayload  = errors.New("malformed webhook payload")
	ErrNotConfigured     = errors.New("payment provider not configured")
	ErrCancelUnsupported = errors.New("provider does not support cancellation")
)

// Provider verifies and translates one payment provider's webhooks into canonical events.
// Event types the backend does not act on come back with an empty Kind.
type Provider interface {
	Name() model.Provider
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*model.Event, error)
}

// Canceller is implemented by providers whose API can cancel a subscription.
type Canceller interface {
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) error
}

// Registry holds the providers that are configured for this deployment.
type Registry struct {
	providers map[model.Provider]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[model.Provider]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name.
func (r *Registry) Get(name model.Provider) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Canceller returns the cancellation API of the named provider.
func (r *Registry) Canceller(name model.Provider) (Canceller, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrNotConfigured
	}
	c, ok := p.(Canceller)
	if !ok {
		return nil, ErrCancelUnsupported
	}
	return c, nil
}

// Names lists registered providers in a stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
