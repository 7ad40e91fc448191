package worker

import (
	"context"
	"sync"

	"github.com/nimasrn/merchant-ledger/pkg/logger"
	"github.com/pkg/errors"
)

type WorkerHandler = func(ctx context.Context, workerIndex int, job interface{})

var ErrStopped = errors.New("worker manager stopped")

// WorkerManager distributes jobs over a fixed pool of goroutines. Workers
// run until the context passed to Start is cancelled; jobs still buffered
// at that point are dropped.
type WorkerManager struct {
	jobChannel     chan interface{}
	numberOfWorker int
	do             WorkerHandler
	done           chan struct{}
	once           sync.Once
	waiter         sync.WaitGroup
}

func NewWorkerManager(bufferSize, numberOfWorkers int) *WorkerManager {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	return &WorkerManager{
		jobChannel:     make(chan interface{}, bufferSize),
		numberOfWorker: numberOfWorkers,
		done:           make(chan struct{}),
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue blocks until a worker slot is free, ctx is done or the manager
// has stopped.
func (w *WorkerManager) Enqueue(ctx context.Context, val interface{}) error {
	select {
	case <-w.done:
		return ErrStopped
	default:
	}

	select {
	case w.jobChannel <- val:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}
}

// Start runs the workers and blocks until ctx is cancelled and every
// in-flight job has returned.
func (w *WorkerManager) Start(ctx context.Context) error {
	if w.do == nil {
		return errors.New("worker handler is not set")
	}

	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(ctx, index, job)
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}

	<-ctx.Done()
	w.once.Do(func() { close(w.done) })
	w.waiter.Wait()
	logger.Info("[worker] all workers stopped", "workers", w.numberOfWorker, "dropped", len(w.jobChannel))
	return ErrStopped
}
