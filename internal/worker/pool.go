package worker

import (
	"context"
	"errors"
	"sync"

	"cert-verification/internal/logger"

	"github.com/rs/zerolog"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type WorkerPool struct {
	workerCount int
	jobChan     chan func(context.Context) error
	quit        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	log         zerolog.Logger
}

func NewWorkerPool(workerCount int) *WorkerPool {
	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan func(context.Context) error, workerCount),
		quit:        make(chan struct{}),
		log:         logger.Get(),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Info().Int("worker_count", wp.workerCount).Msg("Starting worker pool")

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop signals shutdown and waits for the workers to finish. jobChan is
// never closed: Submit may still be blocked in a send when Stop runs, and
// a send on a closed channel would panic the consumer.
func (wp *WorkerPool) Stop() {
	wp.log.Info().Msg("Stopping worker pool")
	wp.stopOnce.Do(func() {
		close(wp.quit)
	})
	wp.wg.Wait()
	wp.log.Info().Msg("Worker pool stopped")
}

// Submit blocks until a worker slot is available, the pool stops, or ctx
// is done. Dequeued jobs must never be dropped: the payload has already
// been popped from the queue, so backpressure has to reach the consumer
// instead.
func (wp *WorkerPool) Submit(ctx context.Context, job func(context.Context) error) error {
	select {
	case wp.jobChan <- job:
		return nil
	case <-wp.quit:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	log := wp.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Worker stopping due to context cancellation")
			return
		case <-wp.quit:
			wp.drain(ctx, log)
			return
		case job := <-wp.jobChan:
			if err := job(ctx); err != nil {
				log.Error().Err(err).Msg("Job execution failed")
			}
		}
	}
}

// drain runs jobs already accepted into the buffer before shutdown so a
// submitted payload is not silently lost.
func (wp *WorkerPool) drain(ctx context.Context, log zerolog.Logger) {
	for {
		select {
		case job := <-wp.jobChan:
			if err := job(ctx); err != nil {
				log.Error().Err(err).Msg("Job execution failed")
			}
		default:
			log.Debug().Msg("Worker stopping, buffer drained")
			return
		}
	}
}
