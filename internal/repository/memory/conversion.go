package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"
)

var _ repository.ConversionRepository = (*ConversionRepo)(nil)

type ConversionRepo struct {
	mu      sync.Mutex
	records map[string]model.ConversionRecord
}

func NewConversionRepo() *ConversionRepo {
	return &ConversionRepo{records: make(map[string]model.ConversionRecord)}
}

func (r *ConversionRepo) Create(_ context.Context, rec *model.ConversionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.ID]; exists {
		return fmt.Errorf("conversion %s already exists", rec.ID)
	}
	r.records[rec.ID] = *rec
	return nil
}

func (r *ConversionRepo) MarkCompleted(_ context.Context, id, storageKey string, at time.Time) error {
	return r.update(id, func(rec *model.ConversionRecord) {
		rec.Status = model.ConversionCompleted
		rec.StorageKey = &storageKey
		rec.CompletedAt = &at
	})
}

func (r *ConversionRepo) MarkFailed(_ context.Context, id, message string, at time.Time) error {
	return r.update(id, func(rec *model.ConversionRecord) {
		rec.Status = model.ConversionFailed
		rec.ErrorMessage = &message
		rec.CompletedAt = &at
	})
}

func (r *ConversionRepo) update(id string, fn func(*model.ConversionRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return model.ErrNotFound
	}
	fn(&rec)
	r.records[id] = rec
	return nil
}

func (r *ConversionRepo) ListRecent(_ context.Context, userID string, limit int) ([]model.ConversionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ConversionRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
