package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotebookKind string

const (
	KindStack    NotebookKind = "stack"
	KindNotebook NotebookKind = "notebook"
)

// Notebook is a node of the two-level hierarchy: a stack has no parent,
// a notebook belongs to exactly one stack. SortOrder is dense and
// zero-based within each sibling group.
type Notebook struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string       `gorm:"not null" json:"name"`
	ParentID   *uuid.UUID   `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Kind       NotebookKind `gorm:"not null;default:stack" json:"kind"`
	SortOrder  int          `gorm:"not null;default:0" json:"sort_order"`
	ExternalID *string      `gorm:"index" json:"external_id,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (nb *Notebook) IsStack() bool {
	return nb.Kind == KindStack
}

func (nb *Notebook) FromJSON(data []byte) error {
	return json.Unmarshal(data, nb)
}

func (nb *Notebook) ToJSON() ([]byte, error) {
	return json.Marshal(nb)
}
