// Package seed loads the initial board from a YAML or JSON snapshot file.
package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/KevinKickass/railboard/internal/board"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// File is the on-disk seed document.
type File struct {
	Zone     string      `json:"zone"`
	Circuits []board.Row `json:"circuits"`
}

type Loader struct {
	validator *Validator
}

func NewLoader() (*Loader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}
	return &Loader{validator: validator}, nil
}

// Load reads, validates and normalizes the seed at path.
func (l *Loader) Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}

	f, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return f, nil
}

// Parse accepts YAML or JSON. Rows without an id get a generated one, rows
// without a status start as OK, and datetimes are normalized.
func (l *Loader) Parse(data []byte) (*File, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := l.validator.Validate(doc); err != nil {
		return nil, err
	}

	// Validated documents only hold string-keyed maps, so they re-encode as JSON.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode seed: %w", err)
	}
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}

	for i := range f.Circuits {
		if err := normalize(&f.Circuits[i].Circuit); err != nil {
			return nil, err
		}
		for j := range f.Circuits[i].SubRows {
			if err := normalize(&f.Circuits[i].SubRows[j]); err != nil {
				return nil, err
			}
		}
	}

	if _, err := board.NewStore(f.Circuits); err != nil {
		return nil, err
	}

	return &f, nil
}

func normalize(c *board.Circuit) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = board.StatusOK
	}

	var err error
	if c.FailureDateTime, err = board.Commit(c.FailureDateTime, board.FieldDateTime); err != nil {
		return fmt.Errorf("circuit %s failureDateTime: %w", c.ID, err)
	}
	if c.RestorationDateTime, err = board.Commit(c.RestorationDateTime, board.FieldDateTime); err != nil {
		return fmt.Errorf("circuit %s restorationDateTime: %w", c.ID, err)
	}
	if c.FaultySection, err = board.Commit(c.FaultySection, board.FieldText); err != nil {
		return fmt.Errorf("circuit %s faultySection: %w", c.ID, err)
	}
	if c.Remarks, err = board.Commit(c.Remarks, board.FieldMultiline); err != nil {
		return fmt.Errorf("circuit %s remarks: %w", c.ID, err)
	}
	return nil
}
