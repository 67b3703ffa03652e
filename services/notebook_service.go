package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
)

type NotebookServiceInterface interface {
	CreateNotebook(db *database.Database, name string, parentID *uuid.UUID) (models.Notebook, error)
	GetNotebookById(db *database.Database, id string) (models.Notebook, error)
	ListNotebooks(db *database.Database) ([]models.Notebook, error)
	RenameNotebook(db *database.Database, id string, name string) (models.Notebook, error)
	MoveNotebook(db *database.Database, id string, targetParentID *uuid.UUID, targetIndex int) error
	DeleteNotebook(db *database.Database, id string) error
}

type NotebookService struct{}

// CreateNotebook creates a stack (no parent) or a notebook under a stack,
// appending it at the end of its sibling group.
func (s *NotebookService) CreateNotebook(db *database.Database, name string, parentID *uuid.UUID) (models.Notebook, error) {
	if name == "" {
		return models.Notebook{}, ErrInvalidInput
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Notebook{}, tx.Error
	}

	kind := models.KindStack
	if parentID != nil {
		var parent models.Notebook
		if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Notebook{}, ErrNotebookNotFound
			}
			return models.Notebook{}, err
		}
		if !parent.IsStack() {
			tx.Rollback()
			return models.Notebook{}, ErrInvalidParent
		}
		kind = models.KindNotebook
	}

	nextOrder, err := nextSortOrder(tx, parentID)
	if err != nil {
		tx.Rollback()
		return models.Notebook{}, err
	}

	notebook := models.Notebook{
		ID:        uuid.New(),
		Name:      name,
		ParentID:  parentID,
		Kind:      kind,
		SortOrder: nextOrder,
	}

	if err := tx.Create(&notebook).Error; err != nil {
		tx.Rollback()
		return models.Notebook{}, err
	}

	err = recordEvent(tx, NotebookCreated, "notebook", map[string]interface{}{
		"notebook_id": notebook.ID.String(),
		"name":        notebook.Name,
		"kind":        string(notebook.Kind),
	})
	if err != nil {
		tx.Rollback()
		return models.Notebook{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Notebook{}, err
	}

	return notebook, nil
}

func (s *NotebookService) GetNotebookById(db *database.Database, id string) (models.Notebook, error) {
	var notebook models.Notebook
	if err := db.DB.First(&notebook, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Notebook{}, ErrNotebookNotFound
		}
		return models.Notebook{}, err
	}
	return notebook, nil
}

// ListNotebooks returns all notebooks, stacks first, then children grouped
// by parent in manual order.
func (s *NotebookService) ListNotebooks(db *database.Database) ([]models.Notebook, error) {
	var notebooks []models.Notebook
	err := db.DB.
		Order("parent_id IS NOT NULL, parent_id, sort_order, name").
		Find(&notebooks).Error
	if err != nil {
		return nil, err
	}
	return notebooks, nil
}

func (s *NotebookService) RenameNotebook(db *database.Database, id string, name string) (models.Notebook, error) {
	if name == "" {
		return models.Notebook{}, ErrInvalidInput
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Notebook{}, tx.Error
	}

	var notebook models.Notebook
	if err := tx.First(&notebook, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Notebook{}, ErrNotebookNotFound
		}
		return models.Notebook{}, err
	}

	notebook.Name = name
	if err := tx.Model(&models.Notebook{}).Where("id = ?", notebook.ID).Update("name", name).Error; err != nil {
		tx.Rollback()
		return models.Notebook{}, err
	}

	err := recordEvent(tx, NotebookRenamed, "notebook", map[string]interface{}{
		"notebook_id": notebook.ID.String(),
		"name":        name,
	})
	if err != nil {
		tx.Rollback()
		return models.Notebook{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Notebook{}, err
	}

	return notebook, nil
}

// MoveNotebook re-homes and/or re-orders a node. The target index is
// clamped to the target sibling group; both affected groups come out
// densely numbered from zero.
func (s *NotebookService) MoveNotebook(db *database.Database, id string, targetParentID *uuid.UUID, targetIndex int) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var moved models.Notebook
	if err := tx.First(&moved, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotebookNotFound
		}
		return err
	}

	// A stack cannot acquire a parent and a notebook cannot lose one.
	if targetParentID == nil && moved.Kind == models.KindNotebook {
		tx.Rollback()
		return ErrInvalidParent
	}
	if targetParentID != nil {
		if moved.Kind == models.KindStack || *targetParentID == moved.ID {
			tx.Rollback()
			return ErrInvalidParent
		}
		var target models.Notebook
		if err := tx.First(&target, "id = ?", *targetParentID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotebookNotFound
			}
			return err
		}
		if !target.IsStack() {
			tx.Rollback()
			return ErrInvalidParent
		}
	}

	sourceIDs, err := siblingIDsExcluding(tx, moved.ParentID, moved.ID)
	if err != nil {
		tx.Rollback()
		return err
	}
	targetIDs, err := siblingIDsExcluding(tx, targetParentID, moved.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(targetIDs) {
		targetIndex = len(targetIDs)
	}
	targetIDs = append(targetIDs[:targetIndex], append([]uuid.UUID{moved.ID}, targetIDs[targetIndex:]...)...)

	sameGroup := sameParent(moved.ParentID, targetParentID)

	if err := renumberGroup(tx, targetIDs, moved.ID, targetParentID); err != nil {
		tx.Rollback()
		return err
	}
	if !sameGroup {
		if err := renumberGroup(tx, sourceIDs, uuid.Nil, nil); err != nil {
			tx.Rollback()
			return err
		}
	}

	err = recordEvent(tx, NotebookMoved, "notebook", map[string]interface{}{
		"notebook_id":  moved.ID.String(),
		"target_index": targetIndex,
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// DeleteNotebook removes a node. Deleting a stack cascades to its child
// notebooks; notes filed under any removed notebook become unfiled.
func (s *NotebookService) DeleteNotebook(db *database.Database, id string) error {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var notebook models.Notebook
	if err := tx.First(&notebook, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotebookNotFound
		}
		return err
	}

	removedIDs, err := notebookAndDescendantIDs(tx, notebook.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	err = tx.Model(&models.Note{}).
		Where("notebook_id IN ?", removedIDs).
		Update("notebook_id", nil).Error
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Where("id IN ?", removedIDs).Delete(&models.Notebook{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	err = recordEvent(tx, NotebookDeleted, "notebook", map[string]interface{}{
		"notebook_id": notebook.ID.String(),
	})
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// nextSortOrder returns the dense append position for a sibling group.
func nextSortOrder(tx *gorm.DB, parentID *uuid.UUID) (int, error) {
	var max int
	query := tx.Model(&models.Notebook{}).Select("COALESCE(MAX(sort_order), -1)")
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if err := query.Scan(&max).Error; err != nil {
		return 0, err
	}
	return max + 1, nil
}

// siblingIDsExcluding returns the ordered member ids of a sibling group
// with one node left out.
func siblingIDsExcluding(tx *gorm.DB, parentID *uuid.UUID, exclude uuid.UUID) ([]uuid.UUID, error) {
	var siblings []models.Notebook
	query := tx.Where("id <> ?", exclude).Order("sort_order, name")
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if err := query.Find(&siblings).Error; err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(siblings))
	for _, nb := range siblings {
		ids = append(ids, nb.ID)
	}
	return ids, nil
}

// renumberGroup writes a dense zero-based order over the given ids. When
// one of them is the moved node, its parent pointer is rewritten in the
// same update.
func renumberGroup(tx *gorm.DB, ids []uuid.UUID, movedID uuid.UUID, movedParent *uuid.UUID) error {
	for i, nbID := range ids {
		updates := map[string]interface{}{"sort_order": i}
		if nbID == movedID {
			updates["parent_id"] = movedParent
		}
		err := tx.Model(&models.Notebook{}).Where("id = ?", nbID).Updates(updates).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// notebookAndDescendantIDs resolves a node plus everything below it via an
// in-memory adjacency walk. The hierarchy is at most two levels deep, but
// the visited set keeps the walk bounded even over corrupt parent chains.
func notebookAndDescendantIDs(tx *gorm.DB, id uuid.UUID) ([]uuid.UUID, error) {
	var all []models.Notebook
	if err := tx.Select("id", "parent_id").Find(&all).Error; err != nil {
		return nil, err
	}

	children := make(map[uuid.UUID][]uuid.UUID)
	for _, nb := range all {
		if nb.ParentID != nil {
			children[*nb.ParentID] = append(children[*nb.ParentID], nb.ID)
		}
	}

	visited := map[uuid.UUID]bool{id: true}
	result := []uuid.UUID{id}
	queue := []uuid.UUID{id}
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

// NewNotebookService creates a new instance of NotebookService
func NewNotebookService() NotebookServiceInterface {
	return &NotebookService{}
}

var NotebookServiceInstance NotebookServiceInterface
