package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Note is the primary document row. While active, NotebookID points at the
// containing notebook (or is nil for unfiled notes) and DeletedAt is nil.
// Trashing sets DeletedAt, clears NotebookID and remembers the prior
// location in DeletedFromNotebookID so a restore can put the note back.
type Note struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title                 string     `gorm:"not null" json:"title"`
	Content               string     `gorm:"type:text" json:"content"`
	NotebookID            *uuid.UUID `gorm:"type:uuid;index" json:"notebook_id,omitempty"`
	ExternalID            *string    `gorm:"index" json:"external_id,omitempty"`
	Meta                  *string    `json:"meta,omitempty"`
	ContentHash           string     `json:"content_hash"`
	ContentSize           int64      `json:"content_size"`
	DeletedAt             *time.Time `gorm:"index" json:"deleted_at,omitempty"`
	DeletedFromNotebookID *uuid.UUID `gorm:"type:uuid" json:"deleted_from_notebook_id,omitempty"`
	CreatedAt             time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"not null" json:"updated_at"`
}

func (n *Note) IsTrashed() bool {
	return n.DeletedAt != nil
}

func (n *Note) FromJSON(data []byte) error {
	return json.Unmarshal(data, n)
}

func (n *Note) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// NoteText is the plain-text projection of a note, written in the same
// transaction as the note row it mirrors.
type NoteText struct {
	NoteID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"note_id"`
	Title     string    `json:"title"`
	PlainText string    `gorm:"type:text" json:"plain_text"`
}
