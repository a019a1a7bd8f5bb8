package service

import (
	"time"

	"github.com/heic2pdf/backend/internal/model"
)

// transition computes the record that results from applying ev to current.
// It returns a nil record when nothing should be written.
func transition(current *model.SubscriptionRecord, ev *model.Event, now time.Time) (*model.SubscriptionRecord, model.Outcome) {
	if !ev.Kind.Known() {
		return nil, model.OutcomeIgnored
	}
	if isOutOfOrder(current, ev) || isForeignSubscription(current, ev) {
		return nil, model.OutcomeStale
	}
	if ev.Kind == model.EventPaymentFailed {
		// Failed charges are recorded as orders; the status waits for the provider's
		// cancel or expire event.
		return nil, model.OutcomeApplied
	}

	fresh := current == nil || current.Provider == model.ProviderNone
	next := current.Clone()
	if next == nil {
		next = &model.SubscriptionRecord{UserID: ev.UserID, Status: model.StatusPending}
	}

	switch ev.Kind {
	case model.EventCreated:
		if !fresh && current.ProviderSubscriptionID == ev.ProviderSubscriptionID {
			return nil, model.OutcomeUnchanged
		}
		if !fresh && current.Entitled(now) {
			// A second checkout that has not been paid yet must not replace a live subscription.
			return nil, model.OutcomeIgnored
		}
		applyIdentity(next, ev)
		next.Status = model.StatusPending
		next.ExpiresAt = copyTime(ev.PeriodEnd)
		next.CancelAtPeriodEnd = false

	case model.EventActivated, model.EventPaymentSucceeded:
		renewal := !fresh && sameSubscription(current, ev)
		applyIdentity(next, ev)
		next.Status = model.StatusActive
		// A missing period end means auto-renewing only for a new subscription. Renewals
		// without one (PayPal sales, late Stripe checkouts) keep the known expiry.
		if ev.PeriodEnd != nil || !renewal {
			next.ExpiresAt = copyTime(ev.PeriodEnd)
		}
		next.CancelAtPeriodEnd = ev.CancelAtPeriodEnd

	case model.EventUpdated:
		applyIdentity(next, ev)
		if st, ok := model.ParseStatus(ev.RawStatus); ok {
			next.Status = st
		}
		if ev.PeriodEnd != nil {
			next.ExpiresAt = copyTime(ev.PeriodEnd)
		}
		next.CancelAtPeriodEnd = ev.CancelAtPeriodEnd

	case model.EventCancelled:
		applyIdentity(next, ev)
		if ev.PeriodEnd != nil {
			next.ExpiresAt = copyTime(ev.PeriodEnd)
		}
		if ev.CancelAtPeriodEnd && next.Status == model.StatusActive {
			// Paid time is honoured; the expiry sweep or the provider's expired event ends it.
			next.CancelAtPeriodEnd = true
		} else {
			next.Status = model.StatusCancelled
			next.CancelAtPeriodEnd = false
		}

	case model.EventExpired:
		applyIdentity(next, ev)
		next.Status = model.StatusExpired
		next.CancelAtPeriodEnd = false
		if ev.PeriodEnd != nil {
			next.ExpiresAt = copyTime(ev.PeriodEnd)
		}
	}

	if !ev.OccurredAt.IsZero() {
		at := ev.OccurredAt.UTC()
		next.LastEventAt = &at
	}
	if next.SameState(current) {
		return nil, model.OutcomeUnchanged
	}
	return next, model.OutcomeApplied
}

// isOutOfOrder reports whether ev is older than the last event applied to current.
// Events without a timestamp fall back to most-recent-wins.
func isOutOfOrder(current *model.SubscriptionRecord, ev *model.Event) bool {
	if current == nil || current.LastEventAt == nil || ev.OccurredAt.IsZero() {
		return false
	}
	return ev.OccurredAt.Before(*current.LastEventAt)
}

// isForeignSubscription reports whether a non-activating event targets a subscription
// other than the one the user currently holds. Activations always win.
func isForeignSubscription(current *model.SubscriptionRecord, ev *model.Event) bool {
	if current == nil || current.Provider == model.ProviderNone || ev.Kind.Activates() || ev.Kind == model.EventCreated {
		return false
	}
	if current.Provider != ev.Provider {
		return true
	}
	return ev.ProviderSubscriptionID != "" &&
		current.ProviderSubscriptionID != "" &&
		ev.ProviderSubscriptionID != current.ProviderSubscriptionID
}

// sameSubscription reports whether ev targets the subscription current already holds.
// An event without a subscription id is taken to target it.
func sameSubscription(current *model.SubscriptionRecord, ev *model.Event) bool {
	if current.Provider != ev.Provider {
		return false
	}
	return ev.ProviderSubscriptionID == "" || ev.ProviderSubscriptionID == current.ProviderSubscriptionID
}

func applyIdentity(next *model.SubscriptionRecord, ev *model.Event) {
	if next.Provider != ev.Provider {
		// Switching providers starts from a clean identity.
		next.ProviderSubscriptionID = ""
		next.ProviderCustomerID = ""
		next.PlanID = ""
	}
	next.UserID = ev.UserID
	next.Provider = ev.Provider
	if ev.ProviderSubscriptionID != "" {
		next.ProviderSubscriptionID = ev.ProviderSubscriptionID
	}
	if ev.ProviderCustomerID != "" {
		next.ProviderCustomerID = ev.ProviderCustomerID
	}
	if ev.PlanID != "" {
		next.PlanID = ev.PlanID
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := t.UTC()
	return &c
}
