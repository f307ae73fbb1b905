package interfaces

import (
	"context"

	"github.com/KevinKickass/railboard/internal/config"
	"github.com/KevinKickass/railboard/internal/session"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	Zone             string `json:"zone"`
	Backend          string `json:"backend"`
	Circuits         int    `json:"circuits"`
	UnsyncedKeys     int    `json:"unsynced_keys"`
	ConnectedClients int    `json:"connected_clients"`
	EditMode         bool   `json:"edit_mode"`
}

type LifecycleManager interface {
	Config() *config.Config
	Session() *session.Session
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
