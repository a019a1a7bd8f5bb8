package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionRepo)(nil)

type orderKey struct {
	userID         string
	provider       model.Provider
	subscriptionID string
	class          model.EventClass
}

type eventKey struct {
	provider model.Provider
	eventID  string
}

type SubscriptionRepo struct {
	mu      sync.Mutex
	subs    map[string]*model.SubscriptionRecord
	orders  map[orderKey]model.Order
	seen    map[eventKey]struct{}
	events  []model.WebhookEventLog
	nextLog int64
	// Err, when set, is returned by every call.
	Err error
}

func NewSubscriptionRepo() *SubscriptionRepo {
	return &SubscriptionRepo{
		subs:   make(map[string]*model.SubscriptionRecord),
		orders: make(map[orderKey]model.Order),
		seen:   make(map[eventKey]struct{}),
	}
}

func (r *SubscriptionRepo) GetSubscription(_ context.Context, userID string) (*model.SubscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.subs[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *SubscriptionRepo) FindUserByCustomerID(_ context.Context, provider model.Provider, customerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	for _, s := range r.subs {
		if s.Provider == provider && s.ProviderCustomerID == customerID && customerID != "" {
			return s.UserID, nil
		}
	}
	return "", model.ErrNotFound
}

func (r *SubscriptionRepo) Reconcile(_ context.Context, entry model.WebhookEventLog, decide repository.DecideFunc) (*repository.ReconcileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}

	key := eventKey{provider: entry.Provider, eventID: entry.EventID}
	if entry.EventID != "" {
		if _, dup := r.seen[key]; dup {
			return &repository.ReconcileResult{Outcome: model.OutcomeDuplicate}, nil
		}
	}

	current := r.subs[entry.UserID]
	decision, err := decide(current.Clone())
	if err != nil {
		return nil, err
	}
	result := &repository.ReconcileResult{Outcome: decision.Outcome, Record: current.Clone()}

	now := time.Now().UTC()
	if decision.Next != nil {
		next := decision.Next.Clone()
		next.UpdatedAt = now
		if current != nil {
			next.CreatedAt = current.CreatedAt
		} else {
			next.CreatedAt = now
		}
		r.subs[next.UserID] = next
		result.Record = next.Clone()
	}
	if decision.Order != nil {
		o := *decision.Order
		ok := orderKey{userID: o.UserID, provider: o.Provider, subscriptionID: o.ProviderSubscriptionID, class: o.EventClass}
		if _, exists := r.orders[ok]; !exists {
			o.CreatedAt = now
			r.orders[ok] = o
			result.Order = &o
		}
	}

	if entry.EventID != "" && decision.Outcome.Settled() {
		r.seen[key] = struct{}{}
	}
	entry.Outcome = decision.Outcome
	r.appendEvent(entry)
	return result, nil
}

func (r *SubscriptionRepo) LogEvent(_ context.Context, entry model.WebhookEventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if entry.EventID != "" && entry.Outcome.Settled() {
		key := eventKey{provider: entry.Provider, eventID: entry.EventID}
		if _, dup := r.seen[key]; dup {
			return nil
		}
		r.seen[key] = struct{}{}
	}
	r.appendEvent(entry)
	return nil
}

func (r *SubscriptionRepo) appendEvent(entry model.WebhookEventLog) {
	r.nextLog++
	entry.ID = r.nextLog
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}
	r.events = append(r.events, entry)
}

func (r *SubscriptionRepo) ExpireDue(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var expired []string
	for id, s := range r.subs {
		if s.Status == model.StatusActive && s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			s.Status = model.StatusExpired
			s.CancelAtPeriodEnd = false
			s.UpdatedAt = now
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired, nil
}

func (r *SubscriptionRepo) ListOrders(_ context.Context, userID string) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var orders []model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// Put seeds a subscription record directly.
func (r *SubscriptionRepo) Put(s *model.SubscriptionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.UserID] = s.Clone()
}

// Events returns the webhook log in arrival order.
func (r *SubscriptionRepo) Events() []model.WebhookEventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.WebhookEventLog(nil), r.events...)
}

// OrderCount returns the number of stored orders.
func (r *SubscriptionRepo) OrderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}
