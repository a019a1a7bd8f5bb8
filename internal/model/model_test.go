package model_test

import (
	"testing"
	"time"

	"github.com/heic2pdf/backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestUTCDay(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 08:30 in Tokyo on the 2nd is 23:30 UTC on the 1st.
	local := time.Date(2026, 3, 2, 8, 30, 0, 0, tokyo)

	day := model.UTCDay(local)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), day)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), model.NextUTCDay(local))
}

func TestUsageRecordIsStale(t *testing.T) {
	rec := model.UsageRecord{LastCountedDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}

	assert.False(t, rec.IsStale(time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)))
	assert.True(t, rec.IsStale(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.False(t, rec.IsStale(time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)))
}

func TestSubscriptionEntitled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		rec  *model.SubscriptionRecord
		want bool
	}{
		{"nil record", nil, false},
		{"no provider", &model.SubscriptionRecord{Provider: model.ProviderNone, Status: model.StatusActive}, false},
		{"active without expiry", &model.SubscriptionRecord{Provider: model.ProviderCreem, Status: model.StatusActive}, true},
		{"active future expiry", &model.SubscriptionRecord{Provider: model.ProviderCreem, Status: model.StatusActive, ExpiresAt: &future}, true},
		{"active past expiry", &model.SubscriptionRecord{Provider: model.ProviderCreem, Status: model.StatusActive, ExpiresAt: &past}, false},
		{"expiry equals now", &model.SubscriptionRecord{Provider: model.ProviderCreem, Status: model.StatusActive, ExpiresAt: &now}, false},
		{"cancelled", &model.SubscriptionRecord{Provider: model.ProviderPayPal, Status: model.StatusCancelled, ExpiresAt: &future}, false},
		{"pending", &model.SubscriptionRecord{Provider: model.ProviderStripe, Status: model.StatusPending}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rec.Entitled(now))
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := model.ParseStatus("suspended")
	assert.True(t, ok)
	assert.Equal(t, model.StatusCancelled, st)

	st, ok = model.ParseStatus("active")
	assert.True(t, ok)
	assert.Equal(t, model.StatusActive, st)

	_, ok = model.ParseStatus("trial_weird")
	assert.False(t, ok)
}

func TestSameStateIgnoresBookkeeping(t *testing.T) {
	exp := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	a := &model.SubscriptionRecord{UserID: "u1", Provider: model.ProviderCreem, Status: model.StatusActive, ExpiresAt: &exp}
	b := a.Clone()
	b.UpdatedAt = time.Now()
	assert.True(t, a.SameState(b))

	later := exp.Add(time.Hour)
	b.ExpiresAt = &later
	assert.False(t, a.SameState(b))
	assert.Equal(t, exp, *a.ExpiresAt)
}

func TestParseProvider(t *testing.T) {
	p, ok := model.ParseProvider("creem")
	assert.True(t, ok)
	assert.Equal(t, model.ProviderCreem, p)

	_, ok = model.ParseProvider("none")
	assert.False(t, ok)
}

func TestOutcomeSettled(t *testing.T) {
	for _, o := range []model.Outcome{model.OutcomeApplied, model.OutcomeUnchanged, model.OutcomeStale} {
		assert.True(t, o.Settled(), o)
	}
	for _, o := range []model.Outcome{model.OutcomeDropped, model.OutcomeIgnored, model.OutcomeDuplicate, model.OutcomeFailed} {
		assert.False(t, o.Settled(), o)
	}
}
