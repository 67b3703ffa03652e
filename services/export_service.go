package services

import (
	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
	"inkwell-notes/inkwell/utils"
)

// ExportManifest is a full snapshot of the store suitable for backup or
// transfer to another installation. Note content is exported with file
// references in canonical form.
type ExportManifest struct {
	Notebooks   []models.Notebook   `json:"notebooks"`
	Notes       []models.Note       `json:"notes"`
	Tags        []models.Tag        `json:"tags"`
	NoteTags    []models.NoteTag    `json:"note_tags"`
	Attachments []models.Attachment `json:"attachments"`
	Files       []models.OcrFile    `json:"files"`
	NoteFiles   []models.NoteFile   `json:"note_files"`
}

type ExportServiceInterface interface {
	Export(db *database.Database) (*ExportManifest, error)
}

type ExportService struct{}

func (s *ExportService) Export(db *database.Database) (*ExportManifest, error) {
	manifest := &ExportManifest{}

	if err := db.DB.Order("id").Find(&manifest.Notebooks).Error; err != nil {
		return nil, err
	}
	if err := db.DB.Order("id").Find(&manifest.Notes).Error; err != nil {
		return nil, err
	}
	if err := db.DB.Order("id").Find(&manifest.Tags).Error; err != nil {
		return nil, err
	}
	if err := db.DB.Order("note_id, tag_id").Find(&manifest.NoteTags).Error; err != nil {
		return nil, err
	}
	if err := db.DB.Order("id").Find(&manifest.Attachments).Error; err != nil {
		return nil, err
	}
	if err := db.DB.Order("id").Find(&manifest.Files).Error; err != nil {
		return nil, err
	}
	if err := db.DB.Order("note_id, file_id").Find(&manifest.NoteFiles).Error; err != nil {
		return nil, err
	}

	for i := range manifest.Notes {
		manifest.Notes[i].Content = utils.CanonicalizeFileURLs(manifest.Notes[i].Content)
	}

	return manifest, nil
}

// NewExportService creates a new instance of ExportService
func NewExportService() ExportServiceInterface {
	return &ExportService{}
}

var ExportServiceInstance ExportServiceInterface
