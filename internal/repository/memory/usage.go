// Package memory provides mutex-guarded in-memory repositories for tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"
)

var _ repository.UsageRepository = (*UsageRepo)(nil)

type UsageRepo struct {
	mu      sync.Mutex
	records map[string]model.UsageRecord
	// Err, when set, is returned by every call.
	Err error
}

func NewUsageRepo() *UsageRepo {
	return &UsageRepo{records: make(map[string]model.UsageRecord)}
}

func (r *UsageRepo) CheckAndMaybeReset(_ context.Context, userID string, today time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}

	day := model.UTCDay(today)
	rec, ok := r.records[userID]
	if !ok || rec.IsStale(day) {
		rec = model.UsageRecord{UserID: userID, DailyCount: 0, LastCountedDate: day, UpdatedAt: time.Now()}
		r.records[userID] = rec
	}
	return rec.DailyCount, nil
}

func (r *UsageRepo) RecordConversion(_ context.Context, userID string, today time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}

	day := model.UTCDay(today)
	rec, ok := r.records[userID]
	switch {
	case !ok || rec.IsStale(day):
		rec = model.UsageRecord{UserID: userID, DailyCount: 1, LastCountedDate: day}
	default:
		rec.DailyCount++
	}
	rec.UpdatedAt = time.Now()
	r.records[userID] = rec
	return rec.DailyCount, nil
}

// Get returns a copy of the stored record.
func (r *UsageRepo) Get(userID string) (model.UsageRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	return rec, ok
}

// Put seeds a record directly.
func (r *UsageRepo) Put(rec model.UsageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.LastCountedDate = model.UTCDay(rec.LastCountedDate)
	r.records[rec.UserID] = rec
}
