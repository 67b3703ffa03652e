package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
	"inkwell-notes/inkwell/utils"
)

// NoteInput carries the fields for creating a note.
type NoteInput struct {
	Title      string
	Content    string
	NotebookID *uuid.UUID
	ExternalID *string
	Meta       *string
}

// NoteUpdate carries a partial update; nil fields are left unchanged.
// Unfile moves the note out of its notebook.
type NoteUpdate struct {
	Title      *string
	Content    *string
	NotebookID *uuid.UUID
	Unfile     bool
	Meta       *string
}

// NoteQuery filters listing. Listing reads note rows directly and never
// touches the search index.
type NoteQuery struct {
	NotebookID         *uuid.UUID
	IncludeDescendants bool
	TagID              *uuid.UUID
	Trashed            bool
	Limit              int
}

type NoteServiceInterface interface {
	CreateNote(db *database.Database, input NoteInput) (models.Note, error)
	GetNoteById(db *database.Database, id string) (models.Note, error)
	GetNotes(db *database.Database, query NoteQuery) ([]models.Note, error)
	UpdateNote(db *database.Database, id string, update NoteUpdate) (models.Note, error)
	DeleteNote(db *database.Database, id string) error
}

// NoteService composes the save pipeline: every create/update writes the
// note row, re-derives the text projection, re-syncs embedded-file
// references, diffs attachments (updates only) and sweeps the registry for
// orphans, all in one transaction. Blob deletion happens after commit and
// is best-effort.
type NoteService struct {
	files *FileService
	log   *zap.Logger
}

func NewNoteService(files *FileService, log *zap.Logger) *NoteService {
	return &NoteService{files: files, log: log}
}

func (s *NoteService) CreateNote(db *database.Database, input NoteInput) (models.Note, error) {
	if input.Title == "" {
		return models.Note{}, ErrInvalidInput
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Note{}, tx.Error
	}

	if input.NotebookID != nil {
		if err := requireNotebook(tx, *input.NotebookID); err != nil {
			tx.Rollback()
			return models.Note{}, err
		}
	}

	note := models.Note{
		ID:          uuid.New(),
		Title:       input.Title,
		Content:     input.Content,
		NotebookID:  input.NotebookID,
		ExternalID:  input.ExternalID,
		Meta:        input.Meta,
		ContentHash: hashContent(input.Content),
		ContentSize: int64(len(input.Content)),
	}

	if err := tx.Create(&note).Error; err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	removed, err := s.saveDerivedState(tx, &note)
	if err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	err = recordEvent(tx, NoteCreated, "note", map[string]interface{}{
		"note_id": note.ID.String(),
		"title":   note.Title,
	})
	if err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	s.files.removeFileBlobs(removed)
	return note, nil
}

func (s *NoteService) GetNoteById(db *database.Database, id string) (models.Note, error) {
	var note models.Note
	if err := db.DB.First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Note{}, ErrNoteNotFound
		}
		return models.Note{}, err
	}
	return note, nil
}

func (s *NoteService) GetNotes(db *database.Database, query NoteQuery) ([]models.Note, error) {
	q := db.DB.Model(&models.Note{})

	if query.Trashed {
		q = q.Where("deleted_at IS NOT NULL")
	} else {
		q = q.Where("deleted_at IS NULL")
	}

	if query.NotebookID != nil {
		if query.IncludeDescendants {
			ids, err := notebookAndDescendantIDs(db.DB, *query.NotebookID)
			if err != nil {
				return nil, err
			}
			q = q.Where("notebook_id IN ?", ids)
		} else {
			q = q.Where("notebook_id = ?", *query.NotebookID)
		}
	}

	if query.TagID != nil {
		q = q.Where("id IN (SELECT note_id FROM note_tags WHERE tag_id = ?)", *query.TagID)
	}

	q = q.Order("updated_at DESC")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var notes []models.Note
	if err := q.Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *NoteService) UpdateNote(db *database.Database, id string, update NoteUpdate) (models.Note, error) {
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

	if update.Title != nil {
		if *update.Title == "" {
			tx.Rollback()
			return models.Note{}, ErrInvalidInput
		}
		note.Title = *update.Title
	}
	if update.Content != nil {
		note.Content = *update.Content
		note.ContentHash = hashContent(note.Content)
		note.ContentSize = int64(len(note.Content))
	}
	if update.Meta != nil {
		note.Meta = update.Meta
	}
	switch {
	case update.Unfile:
		note.NotebookID = nil
	case update.NotebookID != nil:
		if err := requireNotebook(tx, *update.NotebookID); err != nil {
			tx.Rollback()
			return models.Note{}, err
		}
		note.NotebookID = update.NotebookID
	}

	if err := tx.Save(&note).Error; err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	removedAttachments, err := s.files.diffAttachmentsTx(tx, &note)
	if err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	removedFiles, err := s.saveDerivedState(tx, &note)
	if err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	err = recordEvent(tx, NoteUpdated, "note", map[string]interface{}{
		"note_id": note.ID.String(),
		"title":   note.Title,
	})
	if err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Note{}, err
	}

	s.files.removeFileBlobs(removedFiles)
	s.files.removeAttachmentBlobs(removedAttachments)
	return note, nil
}

// DeleteNote permanently removes a note, its projection, joins and any
// attachment blobs it exclusively owned. Trash is handled by TrashService;
// this bypasses it.
func (s *NoteService) DeleteNote(db *database.Database, id string) error {
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

	removedFiles, removedAttachments, err := s.deleteNoteTx(tx, &note)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}

	s.files.removeFileBlobs(removedFiles)
	s.files.removeAttachmentBlobs(removedAttachments)
	return nil
}

// deleteNoteTx is the single permanent-deletion path, also used by
// trash bulk operations. It returns blob paths for post-commit removal.
func (s *NoteService) deleteNoteTx(tx *gorm.DB, note *models.Note) (removedFiles, removedAttachments []string, err error) {
	var attachments []models.Attachment
	if err := tx.Where("note_id = ?", note.ID).Find(&attachments).Error; err != nil {
		return nil, nil, err
	}
	for _, a := range attachments {
		removedAttachments = append(removedAttachments, a.LocalPath)
	}
	if err := tx.Where("note_id = ?", note.ID).Delete(&models.Attachment{}).Error; err != nil {
		return nil, nil, err
	}

	if err := tx.Where("note_id = ?", note.ID).Delete(&models.NoteTag{}).Error; err != nil {
		return nil, nil, err
	}
	if err := tx.Where("note_id = ?", note.ID).Delete(&models.NoteFile{}).Error; err != nil {
		return nil, nil, err
	}
	if err := database.DeleteNoteText(tx, note.ID); err != nil {
		return nil, nil, err
	}
	if err := tx.Delete(&models.Note{}, "id = ?", note.ID).Error; err != nil {
		return nil, nil, err
	}

	removedFiles, err = s.files.sweepOrphansTx(tx)
	if err != nil {
		return nil, nil, err
	}

	err = recordEvent(tx, NoteDeleted, "note", map[string]interface{}{
		"note_id": note.ID.String(),
	})
	if err != nil {
		return nil, nil, err
	}

	return removedFiles, removedAttachments, nil
}

// saveDerivedState runs the projection upsert, embedded-file resync and
// orphan sweep that accompany every note write.
func (s *NoteService) saveDerivedState(tx *gorm.DB, note *models.Note) ([]string, error) {
	if err := database.UpsertNoteText(tx, note.ID, note.Title, utils.DerivePlainText(note.Content)); err != nil {
		return nil, err
	}
	if err := s.files.syncEmbeddedFiles(tx, note); err != nil {
		return nil, err
	}
	return s.files.sweepOrphansTx(tx)
}

func requireNotebook(tx *gorm.DB, id uuid.UUID) error {
	var notebook models.Notebook
	if err := tx.First(&notebook, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotebookNotFound
		}
		return err
	}
	if notebook.IsStack() {
		return ErrInvalidParent
	}
	return nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

var _ NoteServiceInterface = (*NoteService)(nil)

var NoteServiceInstance NoteServiceInterface
