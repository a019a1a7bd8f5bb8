package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"
	"github.com/heic2pdf/backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageRepoRecordConversionConcurrent(t *testing.T) {
	repo := memory.NewUsageRepo()
	today := time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordConversion(context.Background(), "u1", today)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := repo.CheckAndMaybeReset(context.Background(), "u1", today)
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestUsageRepoResetsStaleRecord(t *testing.T) {
	repo := memory.NewUsageRepo()
	repo.Put(model.UsageRecord{UserID: "u1", DailyCount: 7, LastCountedDate: time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)})

	count, err := repo.RecordConversion(context.Background(), "u1", time.Date(2026, 5, 4, 0, 0, 1, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec, ok := repo.Get("u1")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), rec.LastCountedDate)
}

func TestSubscriptionRepoReconcileDeduplicatesEventIDs(t *testing.T) {
	repo := memory.NewSubscriptionRepo()
	entry := model.WebhookEventLog{Provider: model.ProviderCreem, EventID: "evt_1", ProviderEventType: "subscription.active", UserID: "u1"}
	calls := 0
	decide := func(current *model.SubscriptionRecord) (repository.Decision, error) {
		calls++
		return repository.Decision{
			Outcome: model.OutcomeApplied,
			Next:    &model.SubscriptionRecord{UserID: "u1", Provider: model.ProviderCreem, Status: model.StatusActive},
		}, nil
	}

	res, err := repo.Reconcile(context.Background(), entry, decide)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeApplied, res.Outcome)

	res, err = repo.Reconcile(context.Background(), entry, decide)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeDuplicate, res.Outcome)
	assert.Equal(t, 1, calls)
	assert.Len(t, repo.Events(), 1)
}

func TestSubscriptionRepoDroppedEventIsNotSeen(t *testing.T) {
	repo := memory.NewSubscriptionRepo()
	entry := model.WebhookEventLog{Provider: model.ProviderCreem, EventID: "evt_1", ProviderEventType: "subscription.active", Outcome: model.OutcomeDropped}
	require.NoError(t, repo.LogEvent(context.Background(), entry))

	entry.UserID = "u2"
	res, err := repo.Reconcile(context.Background(), entry, func(current *model.SubscriptionRecord) (repository.Decision, error) {
		return repository.Decision{
			Outcome: model.OutcomeApplied,
			Next:    &model.SubscriptionRecord{UserID: "u2", Provider: model.ProviderCreem, Status: model.StatusActive},
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeApplied, res.Outcome)
	assert.Len(t, repo.Events(), 2)
}

func TestSubscriptionRepoOrdersAreUniquePerClass(t *testing.T) {
	repo := memory.NewSubscriptionRepo()
	order := func() *model.Order {
		return &model.Order{ID: "o", UserID: "u1", Provider: model.ProviderCreem, ProviderSubscriptionID: "sub_1", EventClass: model.EventClassPaid, Phase: model.OrderPaid}
	}
	for i := range 3 {
		entry := model.WebhookEventLog{Provider: model.ProviderCreem, ProviderEventType: "subscription.paid", UserID: "u1"}
		res, err := repo.Reconcile(context.Background(), entry, func(*model.SubscriptionRecord) (repository.Decision, error) {
			return repository.Decision{Outcome: model.OutcomeApplied, Order: order()}, nil
		})
		require.NoError(t, err)
		if i == 0 {
			assert.NotNil(t, res.Order)
		} else {
			assert.Nil(t, res.Order)
		}
	}
	assert.Equal(t, 1, repo.OrderCount())
}

func TestSubscriptionRepoExpireDue(t *testing.T) {
	repo := memory.NewSubscriptionRepo()
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	repo.Put(&model.SubscriptionRecord{UserID: "a", Provider: model.ProviderCreem, Status: model.StatusActive, ExpiresAt: &past})
	repo.Put(&model.SubscriptionRecord{UserID: "b", Provider: model.ProviderCreem, Status: model.StatusActive, ExpiresAt: &future})
	repo.Put(&model.SubscriptionRecord{UserID: "c", Provider: model.ProviderCreem, Status: model.StatusActive})

	expired, err := repo.ExpireDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, expired)

	a, err := repo.GetSubscription(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, a.Status)
}

func TestConversionRepoListRecent(t *testing.T) {
	repo := memory.NewConversionRepo()
	base := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, repo.Create(context.Background(), &model.ConversionRecord{
			ID: id, UserID: "u1", Status: model.ConversionPending, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.MarkCompleted(context.Background(), "c3", "k", base))

	recent, err := repo.ListRecent(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c3", recent[0].ID)
	assert.Equal(t, model.ConversionCompleted, recent[0].Status)
	assert.ErrorIs(t, repo.MarkFailed(context.Background(), "missing", "x", base), model.ErrNotFound)
}
