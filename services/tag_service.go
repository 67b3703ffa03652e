package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
)

type TagServiceInterface interface {
	CreateTag(db *database.Database, name string, parentID *uuid.UUID) (models.Tag, error)
	GetTagById(db *database.Database, id string) (models.Tag, error)
	ListTags(db *database.Database) ([]models.Tag, error)
	RenameTag(db *database.Database, id string, name string) (models.Tag, error)
	DeleteTag(db *database.Database, id string) error
	TagNote(db *database.Database, noteID, tagID string) error
	UntagNote(db *database.Database, noteID, tagID string) error
	GetTagsByNote(db *database.Database, noteID string) ([]models.Tag, error)
}

type TagService struct{}

func (s *TagService) CreateTag(db *database.Database, name string, parentID *uuid.UUID) (models.Tag, error) {
	if name == "" {
		return models.Tag{}, ErrInvalidInput
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Tag{}, tx.Error
	}

	if parentID != nil {
		var count int64
		if err := tx.Model(&models.Tag{}).Where("id = ?", *parentID).Count(&count).Error; err != nil {
			tx.Rollback()
			return models.Tag{}, err
		}
		if count == 0 {
			tx.Rollback()
			return models.Tag{}, ErrTagNotFound
		}
	}

	exists, err := siblingTagExists(tx, parentID, name, nil)
	if err != nil {
		tx.Rollback()
		return models.Tag{}, err
	}
	if exists {
		tx.Rollback()
		return models.Tag{}, ErrResourceExists
	}

	tag := models.Tag{ID: uuid.New(), Name: name, ParentID: parentID}
	if err := tx.Create(&tag).Error; err != nil {
		tx.Rollback()
		return models.Tag{}, err
	}

	err = recordEvent(tx, TagCreated, "tag", map[string]interface{}{
		"tag_id": tag.ID.String(),
		"name":   tag.Name,
	})
	if err != nil {
		tx.Rollback()
		return models.Tag{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Tag{}, err
	}

	return tag, nil
}

func (s *TagService) GetTagById(db *database.Database, id string) (models.Tag, error) {
	var tag models.Tag
	if err := db.DB.First(&tag, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Tag{}, ErrTagNotFound
		}
		return models.Tag{}, err
	}
	return tag, nil
}

func (s *TagService) ListTags(db *database.Database) ([]models.Tag, error) {
	var tags []models.Tag
	if err := db.DB.Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *TagService) RenameTag(db *database.Database, id string, name string) (models.Tag, error) {
	if name == "" {
		return models.Tag{}, ErrInvalidInput
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Tag{}, tx.Error
	}

	var tag models.Tag
	if err := tx.First(&tag, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Tag{}, ErrTagNotFound
		}
		return models.Tag{}, err
	}

	exists, err := siblingTagExists(tx, tag.ParentID, name, &tag.ID)
	if err != nil {
		tx.Rollback()
		return models.Tag{}, err
	}
	if exists {
		tx.Rollback()
		return models.Tag{}, ErrResourceExists
	}

	tag.Name = name
	if err := tx.Model(&models.Tag{}).Where("id = ?", tag.ID).Update("name", name).Error; err != nil {
		tx.Rollback()
		return models.Tag{}, err
	}

	err = recordEvent(tx, TagRenamed, "tag", map[string]interface{}{
		"tag_id": tag.ID.String(),
		"name":   name,
	})
	if err != nil {
		tx.Rollback()
		return models.Tag{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Tag{}, err
	}

	return tag, nil
}

// DeleteTag removes a tag with its entire subtree and every join row for
// that subtree; tags never survive with a dangling parent.
func (s *TagService) DeleteTag(db *database.Database, id string) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var tag models.Tag
	if err := tx.First(&tag, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return err
	}

	subtree, err := tagSubtreeIDs(tx, tag.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Where("tag_id IN ?", subtree).Delete(&models.NoteTag{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("id IN ?", subtree).Delete(&models.Tag{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	err = recordEvent(tx, TagDeleted, "tag", map[string]interface{}{
		"tag_id":        tag.ID.String(),
		"deleted_count": len(subtree),
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (s *TagService) TagNote(db *database.Database, noteID, tagID string) error {
	parsedNoteID, err := uuid.Parse(noteID)
	if err != nil {
		return ErrInvalidInput
	}
	parsedTagID, err := uuid.Parse(tagID)
	if err != nil {
		return ErrInvalidInput
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var noteCount int64
	if err := tx.Model(&models.Note{}).Where("id = ?", parsedNoteID).Count(&noteCount).Error; err != nil {
		tx.Rollback()
		return err
	}
	if noteCount == 0 {
		tx.Rollback()
		return ErrNoteNotFound
	}

	var tagCount int64
	if err := tx.Model(&models.Tag{}).Where("id = ?", parsedTagID).Count(&tagCount).Error; err != nil {
		tx.Rollback()
		return err
	}
	if tagCount == 0 {
		tx.Rollback()
		return ErrTagNotFound
	}

	join := models.NoteTag{NoteID: parsedNoteID, TagID: parsedTagID}
	err = tx.Where(&join).FirstOrCreate(&join).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	err = recordEvent(tx, NoteTagged, "note", map[string]interface{}{
		"note_id": noteID,
		"tag_id":  tagID,
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (s *TagService) UntagNote(db *database.Database, noteID, tagID string) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	err := tx.Where("note_id = ? AND tag_id = ?", noteID, tagID).Delete(&models.NoteTag{}).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	err = recordEvent(tx, NoteUntagged, "note", map[string]interface{}{
		"note_id": noteID,
		"tag_id":  tagID,
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (s *TagService) GetTagsByNote(db *database.Database, noteID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := db.DB.
		Where("id IN (SELECT tag_id FROM note_tags WHERE note_id = ?)", noteID).
		Order("name").
		Find(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func siblingTagExists(tx *gorm.DB, parentID *uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	query := tx.Model(&models.Tag{}).Where("name = ?", name)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// tagSubtreeIDs walks the tag tree downward from a root over an in-memory
// adjacency map. The visited set bounds the walk even if stored parent
// pointers form a cycle.
func tagSubtreeIDs(tx *gorm.DB, root uuid.UUID) ([]uuid.UUID, error) {
	var all []models.Tag
	if err := tx.Select("id", "parent_id").Find(&all).Error; err != nil {
		return nil, err
	}

	children := make(map[uuid.UUID][]uuid.UUID)
	for _, t := range all {
		if t.ParentID != nil {
			children[*t.ParentID] = append(children[*t.ParentID], t.ID)
		}
	}

	visited := map[uuid.UUID]bool{root: true}
	result := []uuid.UUID{root}
	queue := []uuid.UUID{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			result = append(result, child)
			queue = append(queue, child)
		}
	}
	return result, nil
}

// NewTagService creates a new instance of TagService
func NewTagService() TagServiceInterface {
	return &TagService{}
}

var TagServiceInstance TagServiceInterface
