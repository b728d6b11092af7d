package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
)

// OutboxStore is the slice of the outbox repository the relay needs.
type OutboxStore interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
}

// OutboxJanitor removes delivered events.
type OutboxJanitor interface {
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// TxRunner runs fn in a transaction carried by ctx.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
