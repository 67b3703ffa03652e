package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
)

type HistoryServiceInterface interface {
	RecordOpen(db *database.Database, noteID string) error
	GetRecentHistory(db *database.Database, limit int) ([]models.NoteHistory, error)
	CleanupHistory(db *database.Database, olderThan time.Duration) (int64, error)
}

type HistoryService struct{}

// RecordOpen appends a history row for a note being opened. Notebook and
// stack titles are denormalized at record time so history entries keep
// their context after the note is moved or its notebook is deleted.
func (s *HistoryService) RecordOpen(db *database.Database, noteID string) error {
	var note models.Note
	if err := db.DB.First(&note, "id = ?", noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		return err
	}

	entry := models.NoteHistory{
		NoteID:    note.ID,
		OpenedAt:  time.Now().UTC(),
		NoteTitle: note.Title,
	}

	if note.NotebookID != nil {
		var notebook models.Notebook
		err := db.DB.First(&notebook, "id = ?", *note.NotebookID).Error
		if err == nil {
			entry.NotebookTitle = notebook.Name
			if notebook.ParentID != nil {
				var stack models.Notebook
				if db.DB.First(&stack, "id = ?", *notebook.ParentID).Error == nil {
					entry.StackTitle = stack.Name
				}
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return db.DB.Create(&entry).Error
}

func (s *HistoryService) GetRecentHistory(db *database.Database, limit int) ([]models.NoteHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.NoteHistory
	err := db.DB.Order("opened_at DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CleanupHistory deletes history entries older than the retention window
// and returns the number of rows removed.
func (s *HistoryService) CleanupHistory(db *database.Database, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result := db.DB.Where("opened_at < ?", cutoff).Delete(&models.NoteHistory{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// NewHistoryService creates a new instance of HistoryService
func NewHistoryService() HistoryServiceInterface {
	return &HistoryService{}
}

var HistoryServiceInstance HistoryServiceInterface
