package board

import (
	"fmt"
	"sync"
	"time"
)

// location addresses a circuit: top is the row index, sub is -1 for the row
// itself or the sub-row index.
type location struct {
	top int
	sub int
}

// Update is the result of a successful field or status change.
type Update struct {
	// Row is the owning top-level row after the change; it is what gets persisted.
	Row     Row
	Circuit Circuit
	Entry   AuditEntry
	Version uint64
}

// Store is the single in-memory source of truth for the board rows.
type Store struct {
	mu      sync.RWMutex
	rows    []Row
	index   map[string]location
	version uint64
	now     func() time.Time
}

type StoreOption func(*Store)

// WithClock overrides the audit timestamp source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore builds a store from a snapshot of rows. Rows are deep-copied.
func NewStore(rows []Row, opts ...StoreOption) (*Store, error) {
	s := &Store{
		rows: make([]Row, len(rows)),
		now:  time.Now,
	}
	for i, r := range rows {
		s.rows[i] = r.Clone()
	}
	for _, opt := range opts {
		opt(s)
	}

	index, err := buildIndex(s.rows)
	if err != nil {
		return nil, err
	}
	s.index = index
	return s, nil
}

func buildIndex(rows []Row) (map[string]location, error) {
	index := make(map[string]location)
	add := func(id string, loc location) error {
		if id == "" {
			return fmt.Errorf("%w: empty id at row %d", ErrDuplicateID, loc.top)
		}
		if _, exists := index[id]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		index[id] = loc
		return nil
	}

	for i, r := range rows {
		if err := add(r.ID, location{top: i, sub: -1}); err != nil {
			return nil, err
		}
		for j, sub := range r.SubRows {
			if err := add(sub.ID, location{top: i, sub: j}); err != nil {
				return nil, err
			}
		}
	}
	return index, nil
}

func (s *Store) circuitAt(loc location) *Circuit {
	if loc.sub < 0 {
		return &s.rows[loc.top].Circuit
	}
	return &s.rows[loc.top].SubRows[loc.sub]
}

// UpdateField sets an editable field on a top-level row or sub-row and records
// the edit in its audit trail. The value is stored as given; validation is the
// cell model's job.
func (s *Store) UpdateField(editor, rowID, field, value string) (Update, error) {
	if _, err := LookupField(field); err != nil {
		return Update{}, err
	}
	return s.apply(editor, rowID, field, value)
}

// UpdateStatus sets the status of a top-level row or sub-row.
func (s *Store) UpdateStatus(editor, rowID string, status Status) (Update, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return Update{}, err
	}
	return s.apply(editor, rowID, FieldStatus, string(status))
}

func (s *Store) apply(editor, rowID, field, value string) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.index[rowID]
	if !ok {
		return Update{}, fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}

	c := s.circuitAt(loc)
	previous, _ := c.fieldValue(field)
	c.setFieldValue(field, value)
	entry := c.recordEdit(editor, field, previous, value, s.now())
	s.version++

	return Update{
		Row:     s.rows[loc.top].Clone(),
		Circuit: c.clone(),
		Entry:   entry,
		Version: s.version,
	}, nil
}

// Reorder moves the top-level row at source to destination. Sub-rows travel
// with their parent. It reports false when the move leaves the order unchanged.
func (s *Store) Reorder(source, destination int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source < 0 || source >= len(s.rows) || destination < 0 {
		return false, fmt.Errorf("%w: move %d -> %d (len %d)", ErrIndexOutOfRange, source, destination, len(s.rows))
	}
	if ClampDestination(len(s.rows), destination) == source {
		return false, nil
	}

	moved, err := Move(s.rows, source, destination)
	if err != nil {
		return false, err
	}
	index, err := buildIndex(moved)
	if err != nil {
		return false, err
	}

	s.rows = moved
	s.index = index
	s.version++
	return true, nil
}

// Snapshot returns a deep copy of the board.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]Row, len(s.rows))
	for i, r := range s.rows {
		rows[i] = r.Clone()
	}
	return Snapshot{
		Rows:     rows,
		Counters: countRows(s.rows),
		Version:  s.version,
	}
}

// Counters recomputes the zone aggregates.
func (s *Store) Counters() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countRows(s.rows)
}

// Order returns the top-level row ids in board order.
func (s *Store) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.rows))
	for i, r := range s.rows {
		ids[i] = r.ID
	}
	return ids
}

// Row returns the top-level row with the given id.
func (s *Store) Row(id string) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.index[id]
	if !ok || loc.sub >= 0 {
		return Row{}, false
	}
	return s.rows[loc.top].Clone(), true
}

// Circuit returns any circuit, top-level or nested, together with the id of
// the top-level row that owns it.
func (s *Store) Circuit(id string) (Circuit, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.index[id]
	if !ok {
		return Circuit{}, "", fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	return s.circuitAt(loc).clone(), s.rows[loc.top].ID, nil
}

// Version increases by one on every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
