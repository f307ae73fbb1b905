// Package session holds the process-wide board state: the row store, the
// edit-mode flag and every operation allowed to change them. Presentation
// layers only ever go through a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/KevinKickass/railboard/internal/api/websocket"
	"github.com/KevinKickass/railboard/internal/board"
	"github.com/KevinKickass/railboard/internal/metrics"
	"github.com/KevinKickass/railboard/internal/syncer"
	"go.uber.org/zap"
)

var ErrEditModeDisabled = errors.New("edit mode is disabled")

// Writer is the write-through side of the backing store.
type Writer interface {
	EnqueueRow(row board.Row)
	EnqueueOrder(ids []string)
	Unsynced() map[string]error
}

type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

type Session struct {
	// mu serializes mutations so that writes are enqueued in commit order.
	mu       sync.Mutex
	store    *board.Store
	editMode atomic.Bool

	zone    string
	writer  Writer
	hub     Broadcaster
	metrics *metrics.Board
	logger  *zap.Logger
}

type Option func(*Session)

func WithZone(zone string) Option {
	return func(s *Session) { s.zone = zone }
}

func WithEditMode(enabled bool) Option {
	return func(s *Session) { s.editMode.Store(enabled) }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(s *Session) { s.hub = b }
}

func WithMetrics(m *metrics.Board) Option {
	return func(s *Session) { s.metrics = m }
}

func New(store *board.Store, writer Writer, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		store:  store,
		writer: writer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.observe()
	return s
}

func (s *Session) Zone() string {
	return s.zone
}

func (s *Session) EditMode() bool {
	return s.editMode.Load()
}

// SetEditMode toggles the UI-level edit guard. It is not an access control.
func (s *Session) SetEditMode(editor string, enabled bool) {
	if s.editMode.Swap(enabled) == enabled {
		return
	}
	s.logger.Info("Edit mode changed",
		zap.Bool("enabled", enabled),
		zap.String("editor", editor))
	s.broadcast(websocket.NewMessage(websocket.MessageTypeEditModeChanged, websocket.EditModeData{
		Enabled: enabled,
		By:      editor,
	}))
}

func (s *Session) requireEditMode() error {
	if !s.editMode.Load() {
		return ErrEditModeDisabled
	}
	return nil
}

// CommitField validates raw input through the cell model and, when it is
// accepted, applies it to the store and queues the owning row for writing.
// Rejected input leaves the board untouched.
func (s *Session) CommitField(ctx context.Context, editor, rowID, field, raw string) (board.Update, error) {
	up, err := s.commitField(ctx, editor, rowID, field, raw)
	s.record("update_field", rowID, err)
	return up, err
}

func (s *Session) commitField(ctx context.Context, editor, rowID, field, raw string) (board.Update, error) {
	if err := ctx.Err(); err != nil {
		return board.Update{}, err
	}
	if err := s.requireEditMode(); err != nil {
		return board.Update{}, err
	}

	spec, err := board.LookupField(field)
	if err != nil {
		return board.Update{}, err
	}
	value, err := board.Commit(raw, spec.Type)
	if err != nil {
		return board.Update{}, fmt.Errorf("%s: %w", field, err)
	}

	s.mu.Lock()
	up, err := s.store.UpdateField(editor, rowID, field, value)
	if err == nil {
		s.writer.EnqueueRow(up.Row)
	}
	s.mu.Unlock()
	if err != nil {
		return board.Update{}, err
	}

	s.afterUpdate(up)
	return up, nil
}

// UpdateStatus sets a circuit's status from its wire form.
func (s *Session) UpdateStatus(ctx context.Context, editor, rowID, status string) (board.Update, error) {
	up, err := s.updateStatus(ctx, editor, rowID, status)
	s.record("update_status", rowID, err)
	return up, err
}

func (s *Session) updateStatus(ctx context.Context, editor, rowID, status string) (board.Update, error) {
	if err := ctx.Err(); err != nil {
		return board.Update{}, err
	}
	if err := s.requireEditMode(); err != nil {
		return board.Update{}, err
	}

	parsed, err := board.ParseStatus(status)
	if err != nil {
		return board.Update{}, err
	}

	s.mu.Lock()
	up, err := s.store.UpdateStatus(editor, rowID, parsed)
	if err == nil {
		s.writer.EnqueueRow(up.Row)
	}
	s.mu.Unlock()
	if err != nil {
		return board.Update{}, err
	}

	s.afterUpdate(up)
	return up, nil
}

// Reorder moves a top-level row. It reports whether the order changed; an
// unchanged order is not written.
func (s *Session) Reorder(ctx context.Context, editor string, source, destination int) (bool, error) {
	changed, err := s.reorder(ctx, editor, source, destination)
	s.record("reorder", "", err)
	return changed, err
}

func (s *Session) reorder(ctx context.Context, editor string, source, destination int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.requireEditMode(); err != nil {
		return false, err
	}

	s.mu.Lock()
	changed, err := s.store.Reorder(source, destination)
	var order []string
	if changed {
		order = s.store.Order()
		s.writer.EnqueueOrder(order)
	}
	s.mu.Unlock()
	if err != nil || !changed {
		return false, err
	}

	version := s.store.Version()
	s.logger.Info("Board reordered",
		zap.String("editor", editor),
		zap.Int("source", source),
		zap.Int("destination", destination))
	s.observe()
	s.broadcast(websocket.NewMessage(websocket.MessageTypeBoardReordered, websocket.BoardReorderedData{
		Order:       order,
		Source:      source,
		Destination: board.ClampDestination(len(order), destination),
		Version:     version,
	}))
	return true, nil
}

func (s *Session) afterUpdate(up board.Update) {
	counters := s.store.Counters()
	s.observe()
	s.broadcast(websocket.NewMessage(websocket.MessageTypeCircuitUpdated, websocket.CircuitUpdatedData{
		RowID:    up.Row.ID,
		Circuit:  up.Circuit,
		Duration: up.Circuit.Duration(),
		Entry:    up.Entry,
		Counters: counters,
		Version:  up.Version,
	}))
}

func (s *Session) record(operation, rowID string, err error) {
	if s.metrics != nil {
		s.metrics.Mutation(operation, err)
	}
	if errors.Is(err, board.ErrRowNotFound) {
		// A stale id means the caller's view of the board is out of date.
		s.logger.Warn("Mutation referenced unknown row",
			zap.String("operation", operation),
			zap.String("row_id", rowID),
			zap.Error(err))
	}
}

func (s *Session) observe() {
	if s.metrics != nil {
		s.metrics.Observe(s.store.Counters(), s.store.Version())
		s.metrics.Unsynced(len(s.writer.Unsynced()))
	}
}

func (s *Session) broadcast(msg websocket.Message) {
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}

// HandleSyncStatus is registered with the write-through queue.
func (s *Session) HandleSyncStatus(key string, synced bool, err error) {
	if s.metrics != nil {
		if !synced {
			s.metrics.SyncFailed()
		}
		s.metrics.Unsynced(len(s.writer.Unsynced()))
	}
	s.broadcast(websocket.NewSyncStatusMessage(key, synced, err))
}

// Resync queues the current state of every unsynced key again and returns
// how many writes were queued.
func (s *Session) Resync(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	queued := 0
	for key := range s.writer.Unsynced() {
		if key == syncer.OrderKey {
			s.writer.EnqueueOrder(s.store.Order())
			queued++
			continue
		}
		row, ok := s.store.Row(key)
		if !ok {
			s.logger.Warn("Unsynced key no longer on the board", zap.String("key", key))
			continue
		}
		s.writer.EnqueueRow(row)
		queued++
	}

	if queued > 0 {
		s.logger.Info("Resync queued", zap.Int("writes", queued))
	}
	return queued, nil
}

// UnsyncedKeys lists keys whose last write failed, sorted.
func (s *Session) UnsyncedKeys() []string {
	unsynced := s.writer.Unsynced()
	keys := make([]string, 0, len(unsynced))
	for k := range unsynced {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AuditTrail returns the audit entries of any circuit, oldest first.
func (s *Session) AuditTrail(rowID string) ([]board.AuditEntry, error) {
	c, _, err := s.store.Circuit(rowID)
	if err != nil {
		return nil, err
	}
	if c.AuditTrail == nil {
		return []board.AuditEntry{}, nil
	}
	return c.AuditTrail, nil
}
