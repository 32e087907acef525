package worker

import (
	"context"
	"log"
	"sync"

	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/queue"
)

const DefaultConcurrency = 4

// Runner executes one dispatched job end-to-end.
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// Pool runs a fixed number of consumer goroutines against the queue. Each
// worker processes one job at a time, so pipeline concurrency is bounded
// by the pool size regardless of submission rate.
type Pool struct {
	consumer    queue.Consumer
	runner      Runner
	concurrency int
	logger      *log.Logger
}

func NewPool(consumer queue.Consumer, runner Runner, concurrency int, logger *log.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pool{
		consumer:    consumer,
		runner:      runner,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Start blocks until ctx is canceled and every worker has drained.
func (p *Pool) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		workerID := i + 1
		go func() {
			defer wg.Done()
			if err := p.consumer.Consume(ctx, p.handle); err != nil && ctx.Err() == nil {
				p.logger.Printf("worker %d: consume loop stopped: %v", workerID, err)
			}
		}()
	}
	wg.Wait()
}

func (p *Pool) handle(ctx context.Context, message domain.QueueMessage) error {
	if err := p.runner.Run(ctx, message.JobID); err != nil {
		p.logger.Printf("worker: job %s attempt %d: %v", message.JobID, message.Attempt, err)
		return err
	}
	return nil
}
