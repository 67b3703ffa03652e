package services

import (
	"gorm.io/gorm"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
)

// Standard event names written to the local change feed. Every mutating
// operation records one of these in the same transaction as the mutation.
const (
	NotebookCreated = "notebook.created"
	NotebookRenamed = "notebook.renamed"
	NotebookMoved   = "notebook.moved"
	NotebookDeleted = "notebook.deleted"

	NoteCreated  = "note.created"
	NoteUpdated  = "note.updated"
	NoteTrashed  = "note.trashed"
	NoteRestored = "note.restored"
	NoteDeleted  = "note.permanent_deleted"

	TrashEmptied = "trash.emptied"

	AttachmentCreated = "attachment.created"
	AttachmentDeleted = "attachment.deleted"

	TagCreated   = "tag.created"
	TagRenamed   = "tag.renamed"
	TagDeleted   = "tag.deleted"
	NoteTagged   = "note.tagged"
	NoteUntagged = "note.untagged"
)

func recordEvent(tx *gorm.DB, event, entity string, data map[string]interface{}) error {
	e, err := models.NewEvent(event, entity, data)
	if err != nil {
		return err
	}
	return tx.Create(e).Error
}

// GetEventsSince returns feed rows after the given id in insertion order.
// UI views poll this with their last seen id to refresh incrementally.
func GetEventsSince(db *database.Database, afterID int64, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 200
	}
	var events []models.Event
	err := db.DB.Where("id > ?", afterID).Order("id").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
