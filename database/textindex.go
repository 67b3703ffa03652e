package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inkwell-notes/inkwell/models"
)

// The plain-text projection lives twice: in note_texts, the relational row
// services read back, and in the note_fts FTS5 mirror the search queries
// MATCH against. Both are written by the same helpers inside whichever
// transaction mutates the note, so a committed note row can never be
// observed with a stale projection.

const createNoteFTSTable = `CREATE VIRTUAL TABLE IF NOT EXISTS note_fts USING fts5(note_id UNINDEXED, title, plain_text)`

// UpsertNoteText writes the projection row and its FTS mirror for a note.
func UpsertNoteText(tx *gorm.DB, noteID uuid.UUID, title, plainText string) error {
	text := models.NoteText{NoteID: noteID, Title: title, PlainText: plainText}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "note_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "plain_text"}),
	}).Create(&text).Error
	if err != nil {
		return err
	}

	if err := tx.Exec(`DELETE FROM note_fts WHERE note_id = ?`, noteID.String()).Error; err != nil {
		return err
	}
	return tx.Exec(`INSERT INTO note_fts (note_id, title, plain_text) VALUES (?, ?, ?)`,
		noteID.String(), title, plainText).Error
}

// DeleteNoteText removes a note's projection row and FTS mirror.
func DeleteNoteText(tx *gorm.DB, noteID uuid.UUID) error {
	if err := tx.Where("note_id = ?", noteID).Delete(&models.NoteText{}).Error; err != nil {
		return err
	}
	return tx.Exec(`DELETE FROM note_fts WHERE note_id = ?`, noteID.String()).Error
}
