// Package syncer writes board changes through to the backing store. Writes are
// serialized per key so that at most one is in flight for any row, and
// failures are retried with exponential backoff before the key is flagged as
// unsynced.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/railboard/internal/board"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// OrderKey is the queue key used for board order writes.
const OrderKey = "board:order"

// ErrPersistence wraps every backing store failure surfaced by the writer.
var ErrPersistence = errors.New("persistence failure")

// Backend is the backing store contract.
type Backend interface {
	LoadAll(ctx context.Context) ([]board.Row, error)
	SaveRow(ctx context.Context, row board.Row) error
	SaveOrder(ctx context.Context, orderedIDs []string) error
}

// RetryPolicy bounds how hard a single write is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AttemptTimeout  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		AttemptTimeout:  5 * time.Second,
	}
}

// StatusFunc is told whenever a key becomes synced or unsynced.
type StatusFunc func(key string, synced bool, err error)

type job struct {
	key   string
	seq   uint64
	write func(ctx context.Context) error
}

type lane struct {
	pending *job
}

type Writer struct {
	backend Backend
	policy  RetryPolicy
	logger  *zap.Logger

	mu       sync.Mutex
	lanes    map[string]*lane
	unsynced map[string]error
	seq      uint64
	onStatus StatusFunc
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWriter(backend Backend, policy RetryPolicy, logger *zap.Logger) *Writer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Writer{
		backend:  backend,
		policy:   policy,
		logger:   logger,
		lanes:    make(map[string]*lane),
		unsynced: make(map[string]error),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnStatus registers the sync status callback. It must be set before the
// first write is enqueued.
func (w *Writer) OnStatus(fn StatusFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStatus = fn
}

// EnqueueRow schedules a write of row under its own id.
func (w *Writer) EnqueueRow(row board.Row) {
	snapshot := row.Clone()
	w.enqueue(row.ID, func(ctx context.Context) error {
		return w.backend.SaveRow(ctx, snapshot)
	})
}

// EnqueueOrder schedules a write of the top-level order.
func (w *Writer) EnqueueOrder(ids []string) {
	order := append([]string(nil), ids...)
	w.enqueue(OrderKey, func(ctx context.Context) error {
		return w.backend.SaveOrder(ctx, order)
	})
}

// enqueue starts a lane worker for key unless one is already running, in
// which case the job waits in the lane's pending slot. A newer job replaces
// an older pending one: the row snapshot it carries already contains every
// earlier commit.
func (w *Writer) enqueue(key string, write func(ctx context.Context) error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.logger.Warn("Write dropped, writer closed", zap.String("key", key))
		return
	}

	w.seq++
	j := &job{key: key, seq: w.seq, write: write}

	if l, running := w.lanes[key]; running {
		if l.pending != nil {
			w.logger.Debug("Superseding pending write",
				zap.String("key", key),
				zap.Uint64("superseded_seq", l.pending.seq),
				zap.Uint64("seq", j.seq))
		}
		l.pending = j
		return
	}

	w.lanes[key] = &lane{}
	w.wg.Add(1)
	go w.run(j)
}

func (w *Writer) run(first *job) {
	defer w.wg.Done()

	for j := first; j != nil; j = w.next(j.key) {
		err := w.execute(j)
		w.report(j.key, err)
	}
}

// next pops the pending job for key, or retires the lane when there is none.
func (w *Writer) next(key string) *job {
	w.mu.Lock()
	defer w.mu.Unlock()

	l := w.lanes[key]
	if l == nil || l.pending == nil {
		delete(w.lanes, key)
		return nil
	}
	j := l.pending
	l.pending = nil
	return j
}

func (w *Writer) execute(j *job) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = w.policy.InitialInterval
	eb.MaxInterval = w.policy.MaxInterval
	eb.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		ctx := w.ctx
		if w.policy.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(w.ctx, w.policy.AttemptTimeout)
			defer cancel()
		}
		return j.write(ctx)
	}
	notify := func(err error, wait time.Duration) {
		w.logger.Warn("Write failed, retrying",
			zap.String("key", j.key),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(eb, w.policy.MaxRetries), w.ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("%w: %s after %d attempts: %v", ErrPersistence, j.key, attempt, err)
	}
	return nil
}

func (w *Writer) report(key string, err error) {
	w.mu.Lock()
	_, wasUnsynced := w.unsynced[key]
	if err != nil {
		w.unsynced[key] = err
	} else {
		delete(w.unsynced, key)
	}
	fn := w.onStatus
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Write gave up, key left unsynced", zap.String("key", key), zap.Error(err))
	} else if wasUnsynced {
		w.logger.Info("Key resynced", zap.String("key", key))
	}

	if fn != nil && (err != nil || wasUnsynced) {
		fn(key, err == nil, err)
	}
}

// Unsynced returns the keys whose last write failed, with the failure.
func (w *Writer) Unsynced() map[string]error {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]error, len(w.unsynced))
	for k, v := range w.unsynced {
		out[k] = v
	}
	return out
}

// InFlight reports how many keys currently have a running lane.
func (w *Writer) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.lanes)
}

// Flush waits until every queued write has finished or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes and drains outstanding ones. Writes still
// running when ctx expires are cancelled.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	err := w.Flush(ctx)
	w.cancel()
	if err != nil {
		w.wg.Wait()
		return fmt.Errorf("writer drain: %w", err)
	}
	return nil
}
