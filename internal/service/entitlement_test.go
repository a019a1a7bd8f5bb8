package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository/memory"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog map[string]model.Plan

func (c staticCatalog) Lookup(_ model.Provider, planID string) model.Plan {
	if p, ok := c[planID]; ok {
		return p
	}
	return model.Plan{ID: planID, PlanType: model.PlanMonthly}
}

type entitlementFixture struct {
	usage    *memory.UsageRepo
	subs     *memory.SubscriptionRepo
	clock    *clock
	ledger   service.UsageLedger
	resolver service.EntitlementResolver
}

func newEntitlementFixture(now time.Time) *entitlementFixture {
	f := &entitlementFixture{
		usage: memory.NewUsageRepo(),
		subs:  memory.NewSubscriptionRepo(),
		clock: newClock(now),
	}
	opts := service.Options{Now: f.clock.Now, DailyFreeLimit: 10}
	f.ledger = service.NewUsageLedger(f.usage, zerolog.Nop(), opts)
	f.resolver = service.NewEntitlementResolver(f.subs, f.ledger, staticCatalog{
		"prod_yearly": {ID: "prod_yearly", PlanType: model.PlanYearly},
	}, zerolog.Nop(), opts)
	return f
}

func TestCanConvertFreeUserUnderLimit(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	for range 9 {
		f.ledger.RecordConversion(context.Background(), "u1")
	}

	d := f.resolver.CanConvert(context.Background(), "u1")
	assert.Equal(t, service.Decision{CanConvert: true, IsPro: false, DailyCount: 9}, d)
}

func TestCanConvertFreeUserAtLimit(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	for range 10 {
		f.ledger.RecordConversion(context.Background(), "u1")
	}

	d := f.resolver.CanConvert(context.Background(), "u1")
	assert.False(t, d.CanConvert)
	assert.Equal(t, service.ReasonLimitReached, d.Reason)
	assert.Equal(t, 10, d.DailyCount)
	assert.False(t, d.IsPro)
}

func TestCanConvertProBypassesLedger(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	future := f.clock.Now().Add(24 * time.Hour)
	f.subs.Put(&model.SubscriptionRecord{UserID: "u1", Provider: model.ProviderCreem, Status: model.StatusActive, ExpiresAt: &future})
	for range 50 {
		f.ledger.RecordConversion(context.Background(), "u1")
	}

	d := f.resolver.CanConvert(context.Background(), "u1")
	assert.Equal(t, service.Decision{CanConvert: true, IsPro: true, DailyCount: 0}, d)
}

func TestCanConvertProDoesNotTouchUsage(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	f.subs.Put(&model.SubscriptionRecord{UserID: "u1", Provider: model.ProviderPayPal, Status: model.StatusActive})

	f.resolver.CanConvert(context.Background(), "u1")
	_, ok := f.usage.Get("u1")
	assert.False(t, ok)
}

func TestExpiredProIsFree(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	past := f.clock.Now().Add(-time.Second)
	f.subs.Put(&model.SubscriptionRecord{UserID: "u1", Provider: model.ProviderCreem, Status: model.StatusActive, ExpiresAt: &past})

	assert.False(t, f.resolver.IsPro(context.Background(), "u1"))
	d := f.resolver.CanConvert(context.Background(), "u1")
	assert.False(t, d.IsPro)
	assert.True(t, d.CanConvert)
}

func TestIsProFailsClosed(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	f.subs.Put(&model.SubscriptionRecord{UserID: "u1", Provider: model.ProviderCreem, Status: model.StatusActive})
	f.subs.Err = errors.New("timeout")

	assert.False(t, f.resolver.IsPro(context.Background(), "u1"))
}

func TestCanConvertWithoutUser(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	d := f.resolver.CanConvert(context.Background(), "")
	assert.False(t, d.CanConvert)
	assert.Equal(t, service.ReasonNotAuthenticated, d.Reason)
}

func TestUsageReport(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	for range 3 {
		f.ledger.RecordConversion(context.Background(), "u1")
	}

	report := f.resolver.Usage(context.Background(), "u1")
	assert.Equal(t, 10, report.DailyLimit)
	assert.Equal(t, 7, report.Remaining)
	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), report.ResetAt)
}

func TestStatus(t *testing.T) {
	f := newEntitlementFixture(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	st, err := f.resolver.Status(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "FREE", st.Status)
	assert.False(t, st.IsPro)

	future := f.clock.Now().Add(time.Hour)
	f.subs.Put(&model.SubscriptionRecord{
		UserID: "u1", Provider: model.ProviderCreem, ProviderSubscriptionID: "sub_1",
		Status: model.StatusActive, PlanID: "prod_yearly", ExpiresAt: &future,
	})
	st, err = f.resolver.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", st.Status)
	assert.Equal(t, model.PlanYearly, st.PlanType)
	assert.Equal(t, "sub_1", st.SubscriptionID)
	assert.True(t, st.IsPro)

	f.clock.Set(future.Add(time.Minute))
	st, err = f.resolver.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", st.Status)
	assert.False(t, st.IsActive)
}
