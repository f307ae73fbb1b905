package board

import (
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldText      FieldType = "text"
	FieldMultiline FieldType = "multiline"
	FieldDateTime  FieldType = "datetime"
)

type Mode int

const (
	ModeView Mode = iota
	ModeEdit
)

// EmptyPlaceholder is displayed for unset cells in view mode.
const EmptyPlaceholder = "-"

// DisplayLayout is how datetimes are shown on the board.
const DisplayLayout = "02-01-2006 15:04"

// Field names accepted by UpdateField.
const (
	FieldFailureDateTime     = "failureDateTime"
	FieldRestorationDateTime = "restorationDateTime"
	FieldFaultySection       = "faultySection"
	FieldRemarks             = "remarks"
	FieldStatus              = "status"
)

// FieldSpec describes one editable column.
type FieldSpec struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
	Hint string    `json:"hint,omitempty"`
}

var editableFields = map[string]FieldSpec{
	FieldFailureDateTime:     {Name: FieldFailureDateTime, Type: FieldDateTime},
	FieldRestorationDateTime: {Name: FieldRestorationDateTime, Type: FieldDateTime},
	FieldFaultySection:       {Name: FieldFaultySection, Type: FieldText, Hint: "Section"},
	FieldRemarks:             {Name: FieldRemarks, Type: FieldMultiline, Hint: "Remarks & Action Taken"},
}

// LookupField describes an editable field.
func LookupField(name string) (FieldSpec, error) {
	spec, ok := editableFields[name]
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return spec, nil
}

// CellView is what a presentation layer needs to draw one cell.
type CellView struct {
	Field    string `json:"field"`
	Display  string `json:"display"`
	Editable bool   `json:"editable"`
	Control  string `json:"control,omitempty"`
	Value    string `json:"value,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// Render formats a stored value for view mode, or describes the edit control
// seeded with the stored value for edit mode.
func Render(spec FieldSpec, value string, mode Mode) CellView {
	view := CellView{Field: spec.Name, Display: displayValue(spec.Type, value)}
	if mode != ModeEdit {
		return view
	}

	view.Editable = true
	view.Value = value
	view.Hint = spec.Hint
	switch spec.Type {
	case FieldMultiline:
		view.Control = "textarea"
	case FieldDateTime:
		view.Control = "datetime-local"
	default:
		view.Control = "input"
	}
	return view
}

func displayValue(t FieldType, value string) string {
	if strings.TrimSpace(value) == "" {
		return EmptyPlaceholder
	}
	if t == FieldDateTime {
		if ts, err := ParseTimestamp(value); err == nil {
			return ts.Format(DisplayLayout)
		}
	}
	return value
}

// Commit validates raw input for a field type and returns the value to store.
// It never touches board state; callers hand the result to the Store.
func Commit(raw string, t FieldType) (string, error) {
	raw = strings.ToValidUTF8(raw, "\uFFFD")

	switch t {
	case FieldText:
		folded := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(raw)
		return strings.TrimSpace(folded), nil
	case FieldMultiline:
		normalized := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(raw)
		return strings.TrimRight(normalized, " \t\n"), nil
	case FieldDateTime:
		if strings.TrimSpace(raw) == "" {
			return "", nil
		}
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return "", err
		}
		return ts.Format(StorageLayout), nil
	default:
		return "", fmt.Errorf("%w: field type %q", ErrUnknownField, t)
	}
}

// RenderCircuit renders every editable column of a circuit.
func RenderCircuit(c Circuit, mode Mode) []CellView {
	cells := make([]CellView, 0, len(editableFields))
	for _, name := range []string{FieldFailureDateTime, FieldRestorationDateTime, FieldFaultySection, FieldRemarks} {
		spec := editableFields[name]
		value, _ := c.fieldValue(name)
		cells = append(cells, Render(spec, value, mode))
	}
	return cells
}
