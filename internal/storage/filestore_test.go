package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/KevinKickass/railboard/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFileStore_RoundTripInOrder(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	parent := board.Row{
		Circuit: board.Circuit{ID: "c13", Name: "Signal S13", Status: board.StatusFaulty},
		SubRows: []board.Circuit{{ID: "c13a", Name: "S13 route", Status: board.StatusOK}},
	}
	require.NoError(t, fs.SaveRow(ctx, board.Row{Circuit: board.Circuit{ID: "c1", Name: "1T", Status: board.StatusOK}}))
	require.NoError(t, fs.SaveRow(ctx, parent))
	require.NoError(t, fs.SaveOrder(ctx, []string{"c13", "c1"}))

	rows, err := fs.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c13", rows[0].ID)
	assert.Equal(t, "c13a", rows[0].SubRows[0].ID)
	assert.Equal(t, "c1", rows[1].ID)
}

func TestFileStore_UnorderedRowsFollowSortedAndCorruptSkipped(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	for _, id := range []string{"b", "c", "a"} {
		require.NoError(t, fs.SaveRow(ctx, board.Row{Circuit: board.Circuit{ID: id}}))
	}
	require.NoError(t, fs.SaveOrder(ctx, []string{"c", "gone"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "circuits", "broken.json"), []byte("{"), 0o644))

	rows, err := fs.LoadAll(ctx)
	require.NoError(t, err)

	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r.ID
	}
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestFileStore_EmptyAndInvalidID(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	rows, err := fs.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.Error(t, fs.SaveRow(ctx, board.Row{Circuit: board.Circuit{ID: "../escape"}}))
	assert.Error(t, fs.SaveRow(ctx, board.Row{}))
}
