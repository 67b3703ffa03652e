package services

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
	"inkwell-notes/inkwell/storage"
	"inkwell-notes/inkwell/utils"
)

type FileServiceInterface interface {
	StoreFile(data []byte, filename string) (storage.StoredFile, error)
	CreateAttachment(db *database.Database, noteID string, filename string, data []byte) (models.Attachment, error)
	GetAttachmentsByNote(db *database.Database, noteID string) ([]models.Attachment, error)
	DeleteAttachment(db *database.Database, id string) error
	SweepOrphans(db *database.Database) error
}

// FileService owns the embedded-file registry, explicit attachments and
// their blobs. Registry join rows are rebuilt from note content on every
// save; rows nothing references are swept lazily after each mutation. All
// filesystem deletion happens only after the owning transaction commits.
type FileService struct {
	fs             *storage.LocalFS
	maxOCRAttempts int
	log            *zap.Logger
}

func NewFileService(fs *storage.LocalFS, maxOCRAttempts int, log *zap.Logger) *FileService {
	return &FileService{fs: fs, maxOCRAttempts: maxOCRAttempts, log: log}
}

// StoreFile writes a new embedded-file blob and returns its relative path,
// content hash and MIME type. The registry row appears when a note
// referencing the path is next saved.
func (s *FileService) StoreFile(data []byte, filename string) (storage.StoredFile, error) {
	return s.fs.StoreFile(data, filename)
}

// CreateAttachment imports an explicit attachment for a note.
func (s *FileService) CreateAttachment(db *database.Database, noteID string, filename string, data []byte) (models.Attachment, error) {
	parsedNoteID, err := uuid.Parse(noteID)
	if err != nil {
		return models.Attachment{}, ErrInvalidInput
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Attachment{}, tx.Error
	}

	var noteCount int64
	if err := tx.Model(&models.Note{}).Where("id = ?", parsedNoteID).Count(&noteCount).Error; err != nil {
		tx.Rollback()
		return models.Attachment{}, err
	}
	if noteCount == 0 {
		tx.Rollback()
		return models.Attachment{}, ErrNoteNotFound
	}

	id := uuid.New()
	localPath, mime, err := s.fs.StoreAttachment(id.String(), filename, data)
	if err != nil {
		tx.Rollback()
		return models.Attachment{}, err
	}

	attachment := models.Attachment{
		ID:        id,
		NoteID:    parsedNoteID,
		Filename:  filename,
		Mime:      mime,
		Size:      int64(len(data)),
		LocalPath: localPath,
	}

	if err := tx.Create(&attachment).Error; err != nil {
		tx.Rollback()
		s.fs.RemoveAttachment(localPath)
		return models.Attachment{}, err
	}

	err = recordEvent(tx, AttachmentCreated, "attachment", map[string]interface{}{
		"attachment_id": attachment.ID.String(),
		"note_id":       noteID,
		"filename":      filename,
	})
	if err != nil {
		tx.Rollback()
		s.fs.RemoveAttachment(localPath)
		return models.Attachment{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		s.fs.RemoveAttachment(localPath)
		return models.Attachment{}, err
	}

	return attachment, nil
}

func (s *FileService) GetAttachmentsByNote(db *database.Database, noteID string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := db.DB.Where("note_id = ?", noteID).Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

func (s *FileService) DeleteAttachment(db *database.Database, id string) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var attachment models.Attachment
	if err := tx.First(&attachment, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}

	if err := tx.Delete(&attachment).Error; err != nil {
		tx.Rollback()
		return err
	}

	err := recordEvent(tx, AttachmentDeleted, "attachment", map[string]interface{}{
		"attachment_id": attachment.ID.String(),
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}

	s.fs.RemoveAttachment(attachment.LocalPath)
	return nil
}

// SweepOrphans runs a standalone orphan collection outside any note save,
// used by periodic maintenance.
func (s *FileService) SweepOrphans(db *database.Database) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	removed, err := s.sweepOrphansTx(tx)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}

	s.removeFileBlobs(removed)
	return nil
}

// syncEmbeddedFiles makes the note-file join rows a pure function of the
// note's current content: referenced paths are upserted into the registry
// and the join set is replaced wholesale.
func (s *FileService) syncEmbeddedFiles(tx *gorm.DB, note *models.Note) error {
	refs := utils.ExtractFileRefs(note.Content)

	if err := tx.Where("note_id = ?", note.ID).Delete(&models.NoteFile{}).Error; err != nil {
		return err
	}

	for _, rel := range refs {
		var file models.OcrFile
		err := tx.Where("path = ?", rel).
			Attrs(models.OcrFile{ID: uuid.New(), AttemptsLeft: s.maxOCRAttempts}).
			FirstOrCreate(&file).Error
		if err != nil {
			return err
		}

		join := models.NoteFile{NoteID: note.ID, FileID: file.ID}
		if err := tx.Create(&join).Error; err != nil {
			return err
		}
	}

	return nil
}

// sweepOrphansTx deletes registry rows with zero joins plus their OCR text
// and returns the relative blob paths for post-commit removal.
func (s *FileService) sweepOrphansTx(tx *gorm.DB) ([]string, error) {
	var orphans []models.OcrFile
	err := tx.Where("id NOT IN (SELECT file_id FROM note_files)").Find(&orphans).Error
	if err != nil {
		return nil, err
	}
	if len(orphans) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(orphans))
	paths := make([]string, 0, len(orphans))
	for _, f := range orphans {
		ids = append(ids, f.ID)
		paths = append(paths, f.Path)
	}

	if err := tx.Where("file_id IN ?", ids).Delete(&models.OcrText{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.OcrFile{}).Error; err != nil {
		return nil, err
	}

	return paths, nil
}

// diffAttachmentsTx deletes attachment rows the note's content no longer
// marks as retained and returns their storage paths for post-commit
// removal.
func (s *FileService) diffAttachmentsTx(tx *gorm.DB, note *models.Note) ([]string, error) {
	retained := utils.ExtractAttachmentIDs(note.Content)

	var attachments []models.Attachment
	if err := tx.Where("note_id = ?", note.ID).Find(&attachments).Error; err != nil {
		return nil, err
	}

	var removedIDs []uuid.UUID
	var removedPaths []string
	for _, a := range attachments {
		if _, ok := retained[a.ID]; ok {
			continue
		}
		removedIDs = append(removedIDs, a.ID)
		removedPaths = append(removedPaths, a.LocalPath)
	}
	if len(removedIDs) == 0 {
		return nil, nil
	}

	if err := tx.Where("id IN ?", removedIDs).Delete(&models.Attachment{}).Error; err != nil {
		return nil, err
	}
	return removedPaths, nil
}

func (s *FileService) removeFileBlobs(relPaths []string) {
	for _, rel := range relPaths {
		s.fs.RemoveFile(rel)
	}
}

func (s *FileService) removeAttachmentBlobs(localPaths []string) {
	for _, p := range localPaths {
		s.fs.RemoveAttachment(p)
	}
}

var _ FileServiceInterface = (*FileService)(nil)

var FileServiceInstance FileServiceInterface
