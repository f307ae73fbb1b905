package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KevinKickass/railboard/internal/board"
)

// LoadAll returns every stored row in board order.
func (p *PostgresClient) LoadAll(ctx context.Context) ([]board.Row, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, document
		FROM circuits
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query circuits: %w", err)
	}
	defer rows.Close()

	out := make([]board.Row, 0)
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan circuit: %w", err)
		}

		var row board.Row
		if err := json.Unmarshal(doc, &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal circuit %s: %w", id, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate circuits: %w", err)
	}

	return out, nil
}

// SaveRow upserts a top-level row document. New rows are appended after the
// current last position.
func (p *PostgresClient) SaveRow(ctx context.Context, row board.Row) error {
	doc, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal circuit %s: %w", row.ID, err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO circuits (id, position, document)
		VALUES ($1, (SELECT COALESCE(MAX(position) + 1, 0) FROM circuits), $2)
		ON CONFLICT (id)
		DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = NOW()
	`, row.ID, doc)
	if err != nil {
		return fmt.Errorf("failed to upsert circuit %s: %w", row.ID, err)
	}

	return nil
}

// SaveOrder rewrites positions so that they are contiguous in the given order.
func (p *PostgresClient) SaveOrder(ctx context.Context, orderedIDs []string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for position, id := range orderedIDs {
		tag, err := tx.Exec(ctx, `
			UPDATE circuits
			SET position = $2, updated_at = NOW()
			WHERE id = $1
		`, id, position)
		if err != nil {
			return fmt.Errorf("failed to update position of %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("failed to update position of %s: %w", id, board.ErrRowNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
