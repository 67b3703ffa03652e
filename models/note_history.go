package models

import (
	"time"

	"github.com/google/uuid"
)

// NoteHistory is an append-only log of note opens with denormalized titles,
// so history stays readable after the note or its notebook is renamed or
// deleted. Rows are only inserted and bulk-deleted by time-based cleanup.
type NoteHistory struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NoteID        uuid.UUID `gorm:"type:uuid;not null;index" json:"note_id"`
	OpenedAt      time.Time `gorm:"not null;index" json:"opened_at"`
	NoteTitle     string    `json:"note_title"`
	NotebookTitle string    `json:"notebook_title"`
	StackTitle    string    `json:"stack_title"`
}
