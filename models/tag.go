package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a node of the unbounded-depth tag tree. Names are unique within a
// parent; deleting a tag removes its whole subtree.
type Tag struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"not null;uniqueIndex:idx_tags_parent_name" json:"name"`
	ParentID  *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_tags_parent_name" json:"parent_id,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
}

// NoteTag joins notes and tags many-to-many.
type NoteTag struct {
	NoteID uuid.UUID `gorm:"type:uuid;primaryKey" json:"note_id"`
	TagID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"tag_id"`
}
