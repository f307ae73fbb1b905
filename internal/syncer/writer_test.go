package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KevinKickass/railboard/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeBackend struct {
	mu        sync.Mutex
	saved     []board.Row
	orders    [][]string
	failures  int
	inFlight  map[string]int
	maxFlight int
	gate      chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{inFlight: make(map[string]int)}
}

func (f *fakeBackend) LoadAll(ctx context.Context) ([]board.Row, error) {
	return nil, nil
}

func (f *fakeBackend) SaveRow(ctx context.Context, row board.Row) error {
	f.mu.Lock()
	f.inFlight[row.ID]++
	if f.inFlight[row.ID] > f.maxFlight {
		f.maxFlight = f.inFlight[row.ID]
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight[row.ID]--
	if f.failures > 0 {
		f.failures--
		return errors.New("connection refused")
	}
	f.saved = append(f.saved, row)
	return nil
}

func (f *fakeBackend) SaveOrder(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("connection refused")
	}
	f.orders = append(f.orders, ids)
	return nil
}

func fastPolicy(retries uint64) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		AttemptTimeout:  time.Second,
	}
}

func flush(t *testing.T, w *Writer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Flush(ctx))
}

func row(id, remarks string) board.Row {
	return board.Row{Circuit: board.Circuit{ID: id, Remarks: remarks, Status: board.StatusOK}}
}

func TestWriter_SavesRowAndOrder(t *testing.T) {
	be := newFakeBackend()
	w := NewWriter(be, fastPolicy(1), zaptest.NewLogger(t))

	w.EnqueueRow(row("c1", "first"))
	w.EnqueueOrder([]string{"c2", "c1"})
	flush(t, w)

	require.Len(t, be.saved, 1)
	assert.Equal(t, "first", be.saved[0].Remarks)
	assert.Equal(t, [][]string{{"c2", "c1"}}, be.orders)
	assert.Empty(t, w.Unsynced())
	assert.Zero(t, w.InFlight())
}

func TestWriter_SerializesPerRow(t *testing.T) {
	be := newFakeBackend()
	be.gate = make(chan struct{})
	w := NewWriter(be, fastPolicy(1), zaptest.NewLogger(t))

	w.EnqueueRow(row("c1", "v1"))
	require.Eventually(t, func() bool {
		be.mu.Lock()
		defer be.mu.Unlock()
		return be.inFlight["c1"] == 1
	}, time.Second, time.Millisecond)

	// queued behind the in-flight write; v3 supersedes v2
	w.EnqueueRow(row("c1", "v2"))
	w.EnqueueRow(row("c1", "v3"))

	close(be.gate)
	flush(t, w)

	assert.Equal(t, 1, be.maxFlight)
	require.Len(t, be.saved, 2)
	assert.Equal(t, "v1", be.saved[0].Remarks)
	assert.Equal(t, "v3", be.saved[1].Remarks, "last committed value wins")
}

func TestWriter_SnapshotIsTakenAtEnqueue(t *testing.T) {
	be := newFakeBackend()
	w := NewWriter(be, fastPolicy(1), zaptest.NewLogger(t))

	r := row("c1", "before")
	r.SubRows = []board.Circuit{{ID: "c1a", Remarks: "sub"}}
	w.EnqueueRow(r)
	r.SubRows[0].Remarks = "mutated later"
	flush(t, w)

	require.Len(t, be.saved, 1)
	assert.Equal(t, "sub", be.saved[0].SubRows[0].Remarks)
}

func TestWriter_RetriesTransientFailures(t *testing.T) {
	be := newFakeBackend()
	be.failures = 2
	w := NewWriter(be, fastPolicy(3), zaptest.NewLogger(t))

	var calls int
	w.OnStatus(func(key string, synced bool, err error) { calls++ })

	w.EnqueueRow(row("c1", "x"))
	flush(t, w)

	assert.Len(t, be.saved, 1)
	assert.Empty(t, w.Unsynced())
	assert.Zero(t, calls, "no status change when the key never went unsynced")
}

func TestWriter_FlagsUnsyncedAndRecovers(t *testing.T) {
	be := newFakeBackend()
	be.failures = 100
	w := NewWriter(be, fastPolicy(2), zaptest.NewLogger(t))

	type event struct {
		key    string
		synced bool
	}
	var mu sync.Mutex
	var events []event
	w.OnStatus(func(key string, synced bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event{key, synced})
		if !synced {
			assert.ErrorIs(t, err, ErrPersistence)
		}
	})

	w.EnqueueOrder([]string{"c1"})
	flush(t, w)

	unsynced := w.Unsynced()
	require.Contains(t, unsynced, OrderKey)
	assert.ErrorIs(t, unsynced[OrderKey], ErrPersistence)
	assert.Empty(t, be.orders)

	be.mu.Lock()
	be.failures = 0
	be.mu.Unlock()

	w.EnqueueOrder([]string{"c1"})
	flush(t, w)

	assert.Empty(t, w.Unsynced())
	assert.Len(t, be.orders, 1)
	assert.Equal(t, []event{{OrderKey, false}, {OrderKey, true}}, events)
}

func TestWriter_CloseDrainsAndRejects(t *testing.T) {
	be := newFakeBackend()
	w := NewWriter(be, fastPolicy(1), zaptest.NewLogger(t))

	w.EnqueueRow(row("c1", "x"))
	w.EnqueueRow(row("c2", "y"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))
	assert.Len(t, be.saved, 2)

	w.EnqueueRow(row("c3", "z"))
	flush(t, w)
	assert.Len(t, be.saved, 2)
}
