package remote

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/model"
)

// Pusher is what a Beacon delivers through.
type Pusher interface {
	Push(ctx context.Context, userID string, tasks []model.Task) error
}

type beaconJob struct {
	userID string
	tasks  []model.Task
}

// Beacon delivers pushes in the background so the caller never waits on the
// network. Queued pushes go out in order on a single worker; when the queue is
// full or closed, Send falls back to a detached one-off request.
type Beacon struct {
	pusher Pusher
	log    *log.Logger
	queue  chan beaconJob

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBeacon starts the delivery worker. size is the queue capacity.
func NewBeacon(p Pusher, size int, logger *log.Logger) *Beacon {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Beacon{
		pusher: p,
		log:    logger,
		queue:  make(chan beaconJob, size),
		ctx:    ctx,
		cancel: cancel,
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Send hands tasks off for delivery and returns immediately. It reports
// whether the push was queued; false means it went out as a separate request.
func (b *Beacon) Send(userID string, tasks []model.Task) bool {
	job := beaconJob{userID: userID, tasks: model.Clone(tasks)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		// Nothing waits for this one; the client timeout bounds it.
		go b.deliver(context.Background(), job, "detached")
		return false
	}
	select {
	case b.queue <- job:
		return true
	default:
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.deliver(b.ctx, job, "fallback")
	}()
	return false
}

// Close stops accepting queued pushes and waits for outstanding deliveries
// until ctx is done, after which in-flight requests are cancelled.
func (b *Beacon) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		<-done
		return ctx.Err()
	}
}

func (b *Beacon) run() {
	defer b.wg.Done()
	for job := range b.queue {
		b.deliver(b.ctx, job, "queued")
	}
}

func (b *Beacon) deliver(ctx context.Context, job beaconJob, via string) {
	start := time.Now()
	if err := b.pusher.Push(ctx, job.userID, job.tasks); err != nil {
		b.log.Warn("beacon push failed", "via", via, "user", job.userID, "err", err)
		return
	}
	b.log.Debug("beacon push delivered", "via", via, "user", job.userID, "tasks", len(job.tasks), "dur", time.Since(start))
}
