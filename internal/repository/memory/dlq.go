package memory

import (
	"context"
	"sync"

	"github.com/heic2pdf/backend/internal/model"
	"github.com/heic2pdf/backend/internal/repository"
)

var _ repository.DLQRepository = (*DLQRepo)(nil)

type DLQRepo struct {
	mu       sync.Mutex
	messages []model.DeadLetterMessage
	Err      error
}

func NewDLQRepo() *DLQRepo {
	return &DLQRepo{}
}

func (r *DLQRepo) Create(_ context.Context, message *model.DeadLetterMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, m := range r.messages {
		if m.SubscriptionName == message.SubscriptionName && m.MessageID == message.MessageID {
			return nil
		}
	}
	r.messages = append(r.messages, *message)
	return nil
}

// Messages returns a copy of everything stored.
func (r *DLQRepo) Messages() []model.DeadLetterMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.DeadLetterMessage(nil), r.messages...)
}
