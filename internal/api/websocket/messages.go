package websocket

import (
	"time"

	"github.com/KevinKickass/railboard/internal/board"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Sent once to every client right after it connects
	MessageTypeBoardSnapshot MessageType = "board_snapshot"

	// Board mutations
	MessageTypeCircuitUpdated  MessageType = "circuit_updated"
	MessageTypeBoardReordered  MessageType = "board_reordered"
	MessageTypeEditModeChanged MessageType = "edit_mode_changed"

	// Persistence health
	MessageTypeSyncStatus MessageType = "sync_status"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// CircuitUpdatedData carries the changed circuit and its owning row.
type CircuitUpdatedData struct {
	RowID    string           `json:"row_id"`
	Circuit  board.Circuit    `json:"circuit"`
	Duration string           `json:"duration"`
	Entry    board.AuditEntry `json:"audit_entry"`
	Counters board.Counters   `json:"counters"`
	Version  uint64           `json:"version"`
}

type BoardReorderedData struct {
	Order       []string `json:"order"`
	Source      int      `json:"source"`
	Destination int      `json:"destination"`
	Version     uint64   `json:"version"`
}

type EditModeData struct {
	Enabled bool   `json:"enabled"`
	By      string `json:"by"`
}

type SyncStatusData struct {
	Key    string `json:"key"`
	Synced bool   `json:"synced"`
	Error  string `json:"error,omitempty"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewSyncStatusMessage(key string, synced bool, err error) Message {
	data := SyncStatusData{Key: key, Synced: synced}
	if err != nil {
		data.Error = err.Error()
	}
	return NewMessage(MessageTypeSyncStatus, data)
}
