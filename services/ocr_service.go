package services

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
)

// imageExtensions lists file extensions worth running recognition on.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

type OcrServiceInterface interface {
	GetPendingFiles(db *database.Database, limit int) ([]models.OcrFile, error)
	UpsertText(db *database.Database, fileID uuid.UUID, lang, text, hash string) error
	MarkFailed(db *database.Database, fileID uuid.UUID, reason string) error
	GetTextsByFile(db *database.Database, fileID uuid.UUID) ([]models.OcrText, error)
}

type OcrService struct{}

// GetPendingFiles returns registered files that still need text recognition:
// image files with attempts left and no recognized text stored yet.
func (s *OcrService) GetPendingFiles(db *database.Database, limit int) ([]models.OcrFile, error) {
	if limit <= 0 {
		limit = 20
	}

	var candidates []models.OcrFile
	err := db.DB.
		Where("attempts_left > 0").
		Where("id NOT IN (SELECT file_id FROM ocr_texts)").
		Order("created_at").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	pending := make([]models.OcrFile, 0, limit)
	for _, f := range candidates {
		if !isImagePath(f.Path) {
			continue
		}
		pending = append(pending, f)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

// UpsertText stores recognized text for a file and language, replacing any
// previous result for the same pair.
func (s *OcrService) UpsertText(db *database.Database, fileID uuid.UUID, lang, text, hash string) error {
	if lang == "" {
		return ErrInvalidInput
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var count int64
	if err := tx.Model(&models.OcrFile{}).Where("id = ?", fileID).Count(&count).Error; err != nil {
		tx.Rollback()
		return err
	}
	if count == 0 {
		tx.Rollback()
		return ErrFileNotFound
	}

	record := models.OcrText{FileID: fileID, Lang: lang, Text: text, Hash: hash}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}, {Name: "lang"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "hash"}),
	}).Create(&record).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	// A successful pass clears any prior failure state.
	err = tx.Model(&models.OcrFile{}).
		Where("id = ?", fileID).
		Update("last_error", nil).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// MarkFailed records a failed recognition attempt. Attempts never go below
// zero; a file with no attempts left stops showing up as pending.
func (s *OcrService) MarkFailed(db *database.Database, fileID uuid.UUID, reason string) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var file models.OcrFile
	if err := tx.First(&file, "id = ?", fileID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	attempts := file.AttemptsLeft - 1
	if attempts < 0 {
		attempts = 0
	}

	err := tx.Model(&models.OcrFile{}).
		Where("id = ?", fileID).
		Updates(map[string]interface{}{
			"attempts_left": attempts,
			"last_error":    reason,
		}).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (s *OcrService) GetTextsByFile(db *database.Database, fileID uuid.UUID) ([]models.OcrText, error) {
	var texts []models.OcrText
	err := db.DB.Where("file_id = ?", fileID).Order("lang").Find(&texts).Error
	if err != nil {
		return nil, err
	}
	return texts, nil
}

func isImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// NewOcrService creates a new instance of OcrService
func NewOcrService() OcrServiceInterface {
	return &OcrService{}
}

var OcrServiceInstance OcrServiceInterface
