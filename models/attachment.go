package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Attachment is a user-visible file bound to exactly one note. Its blob
// lives under attachments/<id>/ in the data directory; the row is deleted
// when the note's content no longer carries the attachment marker.
type Attachment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NoteID    uuid.UUID `gorm:"type:uuid;not null;index" json:"note_id"`
	Filename  string    `gorm:"not null" json:"filename"`
	Mime      string    `json:"mime"`
	Size      int64     `json:"size"`
	LocalPath string    `gorm:"not null" json:"local_path"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (a *Attachment) FromJSON(data []byte) error {
	return json.Unmarshal(data, a)
}

func (a *Attachment) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}
