package board

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusOK     Status = "OK"
	StatusFaulty Status = "FAULTY"
	StatusNil    Status = "NIL"
)

// ParseStatus accepts the three board statuses exactly as written.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOK, StatusFaulty, StatusNil:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Circuit is a single monitored line or equipment segment. Sub-rows share this
// shape but can never own sub-rows of their own.
type Circuit struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	FailureDateTime     string       `json:"failureDateTime"`
	RestorationDateTime string       `json:"restorationDateTime"`
	FaultySection       string       `json:"faultySection"`
	Remarks             string       `json:"remarks"`
	Status              Status       `json:"status"`
	AuditTrail          []AuditEntry `json:"auditTrail"`
	LastEditedBy        string       `json:"lastEditedBy,omitempty"`
	LastEditedAt        *time.Time   `json:"lastEditedAt,omitempty"`
}

// Row is a top-level board entry. It is the unit of ordering and of persistence.
type Row struct {
	Circuit
	SubRows []Circuit `json:"subRows,omitempty"`
}

// HasSubRows treats an empty slice the same as no sub-rows.
func (r Row) HasSubRows() bool {
	return len(r.SubRows) > 0
}

// Duration is the derived restoration time of the circuit.
func (c Circuit) Duration() string {
	return FormatDuration(c.FailureDateTime, c.RestorationDateTime)
}

func (c Circuit) clone() Circuit {
	out := c
	if c.AuditTrail != nil {
		out.AuditTrail = append([]AuditEntry(nil), c.AuditTrail...)
	}
	if c.LastEditedAt != nil {
		t := *c.LastEditedAt
		out.LastEditedAt = &t
	}
	return out
}

// Clone returns a deep copy that shares no slices with r.
func (r Row) Clone() Row {
	out := Row{Circuit: r.Circuit.clone()}
	if len(r.SubRows) > 0 {
		out.SubRows = make([]Circuit, len(r.SubRows))
		for i, sub := range r.SubRows {
			out.SubRows[i] = sub.clone()
		}
	}
	return out
}

// Counters are the zone header aggregates, computed over top-level rows.
type Counters struct {
	Circuits int `json:"circuits"`
	OK       int `json:"ok"`
	Faulty   int `json:"faulty"`
	Nil      int `json:"nil"`
}

func countRows(rows []Row) Counters {
	c := Counters{Circuits: len(rows)}
	for _, r := range rows {
		switch r.Status {
		case StatusOK:
			c.OK++
		case StatusFaulty:
			c.Faulty++
		case StatusNil:
			c.Nil++
		}
	}
	return c
}

// Snapshot is an immutable copy of the board for presentation.
type Snapshot struct {
	Rows     []Row    `json:"rows"`
	Counters Counters `json:"counters"`
	Version  uint64   `json:"version"`
}
