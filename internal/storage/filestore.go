package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KevinKickass/railboard/internal/board"
	"go.uber.org/zap"
)

const orderFile = "order.json"

// FileStore keeps one JSON document per top-level row plus the board order in
// a directory. Every write goes to a temp file and is renamed into place, so a
// crash leaves either the old or the new document.
type FileStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "circuits"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (f *FileStore) rowPath(id string) string {
	return filepath.Join(f.dir, "circuits", id+".json")
}

// LoadAll returns rows in stored order. Rows missing from the order file
// follow, sorted by id; unreadable documents are skipped with a warning.
func (f *FileStore) LoadAll(ctx context.Context) ([]board.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(f.dir, "circuits"))
	if err != nil {
		return nil, fmt.Errorf("failed to list circuits: %w", err)
	}

	byID := make(map[string]board.Row, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(f.dir, "circuits", entry.Name()))
		if err != nil {
			f.logger.Warn("Skipping unreadable circuit document", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		var row board.Row
		if err := json.Unmarshal(data, &row); err != nil {
			f.logger.Warn("Skipping corrupt circuit document", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		byID[row.ID] = row
	}

	order, err := f.readOrder()
	if err != nil {
		return nil, err
	}

	rows := make([]board.Row, 0, len(byID))
	for _, id := range order {
		if row, ok := byID[id]; ok {
			rows = append(rows, row)
			delete(byID, id)
		}
	}

	rest := make([]string, 0, len(byID))
	for id := range byID {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	for _, id := range rest {
		rows = append(rows, byID[id])
	}

	return rows, nil
}

func (f *FileStore) readOrder() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, orderFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read order: %w", err)
	}

	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return order, nil
}

func (f *FileStore) SaveRow(ctx context.Context, row board.Row) error {
	if row.ID == "" || strings.ContainsAny(row.ID, `/\`) {
		return fmt.Errorf("invalid circuit id %q", row.ID)
	}
	data, err := json.MarshalIndent(row, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal circuit %s: %w", row.ID, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeAtomic(f.rowPath(row.ID), data)
}

func (f *FileStore) SaveOrder(ctx context.Context, orderedIDs []string) error {
	data, err := json.MarshalIndent(orderedIDs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeAtomic(filepath.Join(f.dir, orderFile), data)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
