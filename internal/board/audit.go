package board

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one committed change to a circuit field.
type AuditEntry struct {
	ID            string    `json:"id"`
	Editor        string    `json:"editor"`
	Timestamp     time.Time `json:"timestamp"`
	Field         string    `json:"field"`
	PreviousValue string    `json:"previousValue"`
	NewValue      string    `json:"newValue"`
}

// recordEdit appends an entry and refreshes the denormalized last-edited cache.
// The trail is append-only; nothing else in the package writes to it.
func (c *Circuit) recordEdit(editor, field, previous, next string, at time.Time) AuditEntry {
	entry := AuditEntry{
		ID:            uuid.NewString(),
		Editor:        editor,
		Timestamp:     at,
		Field:         field,
		PreviousValue: previous,
		NewValue:      next,
	}
	c.AuditTrail = append(c.AuditTrail, entry)
	c.LastEditedBy = editor
	ts := at
	c.LastEditedAt = &ts
	return entry
}
