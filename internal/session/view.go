package session

import (
	"github.com/KevinKickass/railboard/internal/board"
)

// CircuitView is a circuit decorated with its derived columns.
type CircuitView struct {
	board.Circuit
	Duration  string `json:"duration"`
	Highlight bool   `json:"highlight"`
}

type RowView struct {
	CircuitView
	SubRows  []CircuitView `json:"subRows,omitempty"`
	Unsynced bool          `json:"unsynced"`
}

// View is the read model handed to presentation.
type View struct {
	Zone     string         `json:"zone"`
	Rows     []RowView      `json:"rows"`
	Counters board.Counters `json:"counters"`
	EditMode bool           `json:"editMode"`
	Unsynced []string       `json:"unsynced"`
	Version  uint64         `json:"version"`
}

// CircuitDetail is a single circuit with its cells rendered for the current mode.
type CircuitDetail struct {
	CircuitView
	OwnerID string           `json:"ownerId"`
	Cells   []board.CellView `json:"cells"`
}

func circuitView(c board.Circuit) CircuitView {
	return CircuitView{
		Circuit:   c,
		Duration:  c.Duration(),
		Highlight: c.Status == board.StatusFaulty,
	}
}

// Snapshot returns the current board with derived fields filled in.
func (s *Session) Snapshot() View {
	snap := s.store.Snapshot()
	unsynced := s.UnsyncedKeys()

	flagged := make(map[string]bool, len(unsynced))
	for _, k := range unsynced {
		flagged[k] = true
	}

	rows := make([]RowView, len(snap.Rows))
	for i, r := range snap.Rows {
		rv := RowView{
			CircuitView: circuitView(r.Circuit),
			Unsynced:    flagged[r.ID],
		}
		for _, sub := range r.SubRows {
			rv.SubRows = append(rv.SubRows, circuitView(sub))
		}
		rows[i] = rv
	}

	return View{
		Zone:     s.zone,
		Rows:     rows,
		Counters: snap.Counters,
		EditMode: s.EditMode(),
		Unsynced: unsynced,
		Version:  snap.Version,
	}
}

// BoardSnapshot satisfies the websocket hub's snapshot provider.
func (s *Session) BoardSnapshot() any {
	return s.Snapshot()
}

// Circuit returns one circuit, top-level or nested, rendered for the
// current edit mode.
func (s *Session) Circuit(id string) (CircuitDetail, error) {
	c, owner, err := s.store.Circuit(id)
	if err != nil {
		return CircuitDetail{}, err
	}

	mode := board.ModeView
	if s.EditMode() {
		mode = board.ModeEdit
	}
	return CircuitDetail{
		CircuitView: circuitView(c),
		OwnerID:     owner,
		Cells:       board.RenderCircuit(c, mode),
	}, nil
}
