package queue

import (
	"context"

	"github.com/aimorme/dateplan-back/internal/domain"
)

// Producer dispatches admitted jobs to a queue backend. Admission calls it
// fire-and-forget: the submission response never waits on pipeline work.
type Producer interface {
	Enqueue(ctx context.Context, message domain.QueueMessage) error
}

// Consumer receives dispatch messages and executes handlers.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error
}
