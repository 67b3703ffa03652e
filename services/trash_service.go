package services

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
)

type TrashServiceInterface interface {
	GetTrashedNotes(db *database.Database) ([]models.Note, error)
	TrashNote(db *database.Database, id string) error
	RestoreNote(db *database.Database, id string) (models.Note, error)
	RestoreAll(db *database.Database) error
	EmptyTrash(db *database.Database) error
	PurgeExpired(db *database.Database, retention time.Duration) error
}

// TrashService moves notes between active and trashed, restores them and
// permanently deletes them. Bulk operations iterate the same single-note
// paths used for individual notes.
type TrashService struct {
	notes *NoteService
	log   *zap.Logger
}

func NewTrashService(notes *NoteService, log *zap.Logger) *TrashService {
	return &TrashService{notes: notes, log: log}
}

func (s *TrashService) GetTrashedNotes(db *database.Database) ([]models.Note, error) {
	var notes []models.Note
	err := db.DB.Where("deleted_at IS NOT NULL").Order("deleted_at DESC").Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// TrashNote soft-deletes: the row is kept, the prior notebook is
// remembered for restore and the note leaves all active listings.
// Trashing an already-trashed note is a no-op.
func (s *TrashService) TrashNote(db *database.Database, id string) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var note models.Note
	if err := tx.First(&note, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		return err
	}

	if note.IsTrashed() {
		tx.Rollback()
		return nil
	}

	now := time.Now().UTC()
	err := tx.Model(&models.Note{}).Where("id = ?", note.ID).
		Updates(map[string]interface{}{
			"deleted_at":               now,
			"deleted_from_notebook_id": note.NotebookID,
			"notebook_id":              nil,
		}).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	err = recordEvent(tx, NoteTrashed, "note", map[string]interface{}{
		"note_id": note.ID.String(),
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// RestoreNote returns a trashed note to its remembered notebook if that
// notebook still exists, otherwise leaves it unfiled. Existence is checked
// inside the same transaction so the restored row never dangles.
func (s *TrashService) RestoreNote(db *database.Database, id string) (models.Note, error) {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Note{}, tx.Error
	}

	var note models.Note
	if err := tx.First(&note, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Note{}, ErrNoteNotFound
		}
		return models.Note{}, err
	}

	if err := s.restoreNoteTx(tx, &note); err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	return note, nil
}

func (s *TrashService) RestoreAll(db *database.Database) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var trashed []models.Note
	if err := tx.Where("deleted_at IS NOT NULL").Find(&trashed).Error; err != nil {
		tx.Rollback()
		return err
	}

	for i := range trashed {
		if err := s.restoreNoteTx(tx, &trashed[i]); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}

// EmptyTrash permanently deletes every trashed note through the same path
// a single permanent delete takes.
func (s *TrashService) EmptyTrash(db *database.Database) error {
	return s.purge(db, nil)
}

// PurgeExpired permanently deletes notes trashed longer ago than the
// retention period.
func (s *TrashService) PurgeExpired(db *database.Database, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)
	return s.purge(db, &cutoff)
}

func (s *TrashService) purge(db *database.Database, olderThan *time.Time) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	q := tx.Where("deleted_at IS NOT NULL")
	if olderThan != nil {
		q = q.Where("deleted_at < ?", *olderThan)
	}

	var trashed []models.Note
	if err := q.Find(&trashed).Error; err != nil {
		tx.Rollback()
		return err
	}

	var removedFiles, removedAttachments []string
	for i := range trashed {
		files, attachments, err := s.notes.deleteNoteTx(tx, &trashed[i])
		if err != nil {
			tx.Rollback()
			return err
		}
		removedFiles = append(removedFiles, files...)
		removedAttachments = append(removedAttachments, attachments...)
	}

	if olderThan == nil {
		err := recordEvent(tx, TrashEmptied, "trash", map[string]interface{}{
			"deleted_count": len(trashed),
		})
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}

	s.notes.files.removeFileBlobs(removedFiles)
	s.notes.files.removeAttachmentBlobs(removedAttachments)
	return nil
}

// restoreNoteTx is the single-note restore path shared by RestoreNote and
// RestoreAll. Restoring an active note is a no-op.
func (s *TrashService) restoreNoteTx(tx *gorm.DB, note *models.Note) error {
	if !note.IsTrashed() {
		return nil
	}

	note.NotebookID = nil
	if note.DeletedFromNotebookID != nil {
		var count int64
		err := tx.Model(&models.Notebook{}).
			Where("id = ?", *note.DeletedFromNotebookID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			note.NotebookID = note.DeletedFromNotebookID
		}
	}

	err := tx.Model(&models.Note{}).Where("id = ?", note.ID).
		Updates(map[string]interface{}{
			"deleted_at":               nil,
			"deleted_from_notebook_id": nil,
			"notebook_id":              note.NotebookID,
		}).Error
	if err != nil {
		return err
	}

	note.DeletedAt = nil
	note.DeletedFromNotebookID = nil

	return recordEvent(tx, NoteRestored, "note", map[string]interface{}{
		"note_id": note.ID.String(),
	})
}

var _ TrashServiceInterface = (*TrashService)(nil)

var TrashServiceInstance TrashServiceInterface
