package service

import (
	"testing"
	"time"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transitionNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func activeRecord(subID string, expires *time.Time) *model.SubscriptionRecord {
	return &model.SubscriptionRecord{
		UserID:                 "u1",
		Provider:               model.ProviderCreem,
		ProviderSubscriptionID: subID,
		Status:                 model.StatusActive,
		ExpiresAt:              expires,
	}
}

func newEvent(kind model.EventKind, subID string) *model.Event {
	return &model.Event{
		Provider:               model.ProviderCreem,
		ProviderEventType:      string(kind),
		Kind:                   kind,
		UserID:                 "u1",
		ProviderSubscriptionID: subID,
	}
}

func TestTransitionFromNothing(t *testing.T) {
	end := transitionNow.Add(720 * time.Hour)
	tests := []struct {
		name   string
		kind   model.EventKind
		status model.Status
	}{
		{"created is pending", model.EventCreated, model.StatusPending},
		{"activated is active", model.EventActivated, model.StatusActive},
		{"payment is active", model.EventPaymentSucceeded, model.StatusActive},
		{"cancelled is cancelled", model.EventCancelled, model.StatusCancelled},
		{"expired is expired", model.EventExpired, model.StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := newEvent(tt.kind, "sub_1")
			ev.PeriodEnd = &end
			next, outcome := transition(nil, ev, transitionNow)
			require.NotNil(t, next)
			assert.Equal(t, model.OutcomeApplied, outcome)
			assert.Equal(t, tt.status, next.Status)
			assert.Equal(t, "sub_1", next.ProviderSubscriptionID)
			assert.Equal(t, model.ProviderCreem, next.Provider)
		})
	}
}

func TestTransitionUnknownKindIsIgnored(t *testing.T) {
	next, outcome := transition(nil, newEvent("refund", "sub_1"), transitionNow)
	assert.Nil(t, next)
	assert.Equal(t, model.OutcomeIgnored, outcome)
}

func TestTransitionActivationWithoutPeriodEnd(t *testing.T) {
	end := transitionNow.Add(24 * time.Hour)
	paypalSale := newEvent(model.EventPaymentSucceeded, "")
	paypalSale.Provider = model.ProviderPayPal
	paypalRecord := activeRecord("I-123", &end)
	paypalRecord.Provider = model.ProviderPayPal

	tests := []struct {
		name    string
		current *model.SubscriptionRecord
		ev      *model.Event
		expires *time.Time
	}{
		{"new subscription auto-renews", nil, newEvent(model.EventActivated, "sub_1"), nil},
		{"renewal keeps expiry", activeRecord("sub_1", &end), newEvent(model.EventPaymentSucceeded, "sub_1"), &end},
		{"sale without subscription id keeps expiry", paypalRecord, paypalSale, &end},
		{"other subscription auto-renews", activeRecord("sub_old", &end), newEvent(model.EventActivated, "sub_new"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, outcome := transition(tt.current, tt.ev, transitionNow)
			if tt.expires != nil && next == nil {
				assert.Equal(t, model.OutcomeUnchanged, outcome)
				assert.Equal(t, *tt.expires, *tt.current.ExpiresAt)
				return
			}
			require.NotNil(t, next)
			if tt.expires == nil {
				assert.Nil(t, next.ExpiresAt)
				assert.True(t, next.Entitled(transitionNow.Add(1000*time.Hour)))
				return
			}
			require.NotNil(t, next.ExpiresAt)
			assert.Equal(t, *tt.expires, *next.ExpiresAt)
			assert.False(t, next.Entitled(transitionNow.Add(1000*time.Hour)))
		})
	}
}

func TestTransitionReplayIsUnchanged(t *testing.T) {
	end := transitionNow.Add(time.Hour)
	current := activeRecord("sub_1", &end)
	ev := newEvent(model.EventActivated, "sub_1")
	ev.PeriodEnd = &end

	next, outcome := transition(current, ev, transitionNow)
	assert.Nil(t, next)
	assert.Equal(t, model.OutcomeUnchanged, outcome)
}

func TestTransitionRenewalExtendsExpiry(t *testing.T) {
	end := transitionNow.Add(time.Hour)
	renewed := end.Add(720 * time.Hour)
	ev := newEvent(model.EventPaymentSucceeded, "sub_1")
	ev.PeriodEnd = &renewed

	next, outcome := transition(activeRecord("sub_1", &end), ev, transitionNow)
	require.NotNil(t, next)
	assert.Equal(t, model.OutcomeApplied, outcome)
	assert.Equal(t, renewed, *next.ExpiresAt)
}

func TestTransitionCreatedDoesNotReplaceLiveSubscription(t *testing.T) {
	next, outcome := transition(activeRecord("sub_1", nil), newEvent(model.EventCreated, "sub_2"), transitionNow)
	assert.Nil(t, next)
	assert.Equal(t, model.OutcomeIgnored, outcome)

	next, outcome = transition(activeRecord("sub_1", nil), newEvent(model.EventCreated, "sub_1"), transitionNow)
	assert.Nil(t, next)
	assert.Equal(t, model.OutcomeUnchanged, outcome)
}

func TestTransitionActivationReplacesOtherSubscription(t *testing.T) {
	current := activeRecord("sub_old", nil)
	current.Status = model.StatusCancelled
	next, outcome := transition(current, newEvent(model.EventActivated, "sub_new"), transitionNow)
	require.NotNil(t, next)
	assert.Equal(t, model.OutcomeApplied, outcome)
	assert.Equal(t, "sub_new", next.ProviderSubscriptionID)
	assert.Equal(t, model.StatusActive, next.Status)
}

func TestTransitionOtherProviderIsStale(t *testing.T) {
	ev := newEvent(model.EventExpired, "I-123")
	ev.Provider = model.ProviderPayPal
	next, outcome := transition(activeRecord("sub_1", nil), ev, transitionNow)
	assert.Nil(t, next)
	assert.Equal(t, model.OutcomeStale, outcome)
}

func TestTransitionProviderSwitchClearsIdentity(t *testing.T) {
	current := activeRecord("sub_1", nil)
	current.ProviderCustomerID = "cust_creem"
	current.PlanID = "prod_monthly"
	ev := newEvent(model.EventActivated, "I-123")
	ev.Provider = model.ProviderPayPal

	next, outcome := transition(current, ev, transitionNow)
	require.NotNil(t, next)
	assert.Equal(t, model.OutcomeApplied, outcome)
	assert.Equal(t, model.ProviderPayPal, next.Provider)
	assert.Empty(t, next.ProviderCustomerID)
	assert.Empty(t, next.PlanID)
}

func TestTransitionOutOfOrder(t *testing.T) {
	last := transitionNow.Add(-time.Minute)
	current := activeRecord("sub_1", nil)
	current.LastEventAt = &last

	ev := newEvent(model.EventCancelled, "sub_1")
	ev.OccurredAt = last.Add(-time.Hour)
	next, outcome := transition(current, ev, transitionNow)
	assert.Nil(t, next)
	assert.Equal(t, model.OutcomeStale, outcome)

	ev.OccurredAt = last.Add(time.Second)
	next, outcome = transition(current, ev, transitionNow)
	require.NotNil(t, next)
	assert.Equal(t, model.OutcomeApplied, outcome)
	assert.Equal(t, ev.OccurredAt, *next.LastEventAt)
}

func TestTransitionCancelAtPeriodEnd(t *testing.T) {
	end := transitionNow.Add(48 * time.Hour)
	ev := newEvent(model.EventCancelled, "sub_1")
	ev.CancelAtPeriodEnd = true

	next, outcome := transition(activeRecord("sub_1", &end), ev, transitionNow)
	require.NotNil(t, next)
	assert.Equal(t, model.OutcomeApplied, outcome)
	assert.Equal(t, model.StatusActive, next.Status)
	assert.True(t, next.CancelAtPeriodEnd)
	assert.Equal(t, end, *next.ExpiresAt)
}

func TestTransitionUpdatedMapsRawStatus(t *testing.T) {
	ev := newEvent(model.EventUpdated, "sub_1")
	ev.RawStatus = "suspended"
	next, outcome := transition(activeRecord("sub_1", nil), ev, transitionNow)
	require.NotNil(t, next)
	assert.Equal(t, model.OutcomeApplied, outcome)
	assert.Equal(t, model.StatusCancelled, next.Status)

	ev.RawStatus = "past_due"
	next, outcome = transition(activeRecord("sub_1", nil), ev, transitionNow)
	assert.Nil(t, next)
	assert.Equal(t, model.OutcomeUnchanged, outcome)
}

func TestTransitionPaymentFailedKeepsRecord(t *testing.T) {
	next, outcome := transition(activeRecord("sub_1", nil), newEvent(model.EventPaymentFailed, "sub_1"), transitionNow)
	assert.Nil(t, next)
	assert.Equal(t, model.OutcomeApplied, outcome)
}
