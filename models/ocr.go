package models

import (
	"time"

	"github.com/google/uuid"
)

// OcrFile is a deduplicated registry row for an embedded file referenced
// from note content. Path is relative to the files root. AttemptsLeft
// reaches zero after repeated OCR failures; the row stays registered but
// is excluded from the pending queue.
type OcrFile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Path         string    `gorm:"not null;uniqueIndex" json:"path"`
	AttemptsLeft int       `gorm:"not null" json:"attempts_left"`
	LastError    *string   `json:"last_error,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// NoteFile joins notes to registry files. It is rebuilt from the note's
// current content on every save, so it is always a pure function of what
// the content references right now.
type NoteFile struct {
	NoteID uuid.UUID `gorm:"type:uuid;primaryKey" json:"note_id"`
	FileID uuid.UUID `gorm:"type:uuid;primaryKey" json:"file_id"`
}

// OcrText holds recognized text for a registry file, written by the
// external OCR worker.
type OcrText struct {
	FileID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"file_id"`
	Lang      string    `gorm:"primaryKey" json:"lang"`
	Text      string    `gorm:"type:text" json:"text"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
