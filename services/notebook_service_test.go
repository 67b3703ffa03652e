package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell-notes/inkwell/models"
)

func TestCreateNotebook_StackAndChild(t *testing.T) {
	env := newTestEnv(t)

	stack := env.createStack(t, "Work")
	assert.Equal(t, models.KindStack, stack.Kind)
	assert.Nil(t, stack.ParentID)
	assert.Equal(t, 0, stack.SortOrder)

	child := env.createNotebook(t, "Projects", stack.ID)
	assert.Equal(t, models.KindNotebook, child.Kind)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, stack.ID, *child.ParentID)
	assert.Equal(t, 0, child.SortOrder)

	second := env.createNotebook(t, "Archive", stack.ID)
	assert.Equal(t, 1, second.SortOrder)
}

func TestCreateNotebook_Invalid(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.notebooks.CreateNotebook(env.db, "", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	missing := uuid.New()
	_, err = env.notebooks.CreateNotebook(env.db, "Orphan", &missing)
	assert.ErrorIs(t, err, ErrNotebookNotFound)

	// a notebook cannot parent another notebook
	stack := env.createStack(t, "Work")
	child := env.createNotebook(t, "Projects", stack.ID)
	_, err = env.notebooks.CreateNotebook(env.db, "Nested", &child.ID)
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestRenameNotebook(t *testing.T) {
	env := newTestEnv(t)
	stack := env.createStack(t, "Work")

	renamed, err := env.notebooks.RenameNotebook(env.db, stack.ID.String(), "Job")
	require.NoError(t, err)
	assert.Equal(t, "Job", renamed.Name)

	got, err := env.notebooks.GetNotebookById(env.db, stack.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Job", got.Name)

	_, err = env.notebooks.RenameNotebook(env.db, uuid.NewString(), "X")
	assert.ErrorIs(t, err, ErrNotebookNotFound)
}

func TestMoveNotebook_ReorderWithinStack(t *testing.T) {
	env := newTestEnv(t)
	stack := env.createStack(t, "Work")
	env.createNotebook(t, "Projects", stack.ID)
	env.createNotebook(t, "Archive", stack.ID)
	inbox := env.createNotebook(t, "Inbox", stack.ID)

	// move the last child to the front
	err := env.notebooks.MoveNotebook(env.db, inbox.ID.String(), &stack.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Inbox", "Projects", "Archive"}, env.childNames(t, &stack.ID))
	assertDenseOrders(t, env, &stack.ID)
}

func TestMoveNotebook_AcrossStacks(t *testing.T) {
	env := newTestEnv(t)
	work := env.createStack(t, "Work")
	home := env.createStack(t, "Home")
	env.createNotebook(t, "Projects", work.ID)
	archive := env.createNotebook(t, "Archive", work.ID)
	env.createNotebook(t, "Recipes", home.ID)

	err := env.notebooks.MoveNotebook(env.db, archive.ID.String(), &home.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Projects"}, env.childNames(t, &work.ID))
	assert.Equal(t, []string{"Archive", "Recipes"}, env.childNames(t, &home.ID))
	assertDenseOrders(t, env, &work.ID)
	assertDenseOrders(t, env, &home.ID)

	moved, err := env.notebooks.GetNotebookById(env.db, archive.ID.String())
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, home.ID, *moved.ParentID)
}

func TestMoveNotebook_ReorderStacks(t *testing.T) {
	env := newTestEnv(t)
	work := env.createStack(t, "Work")
	env.createStack(t, "Home")
	env.createStack(t, "Reading")

	// index past the end clamps to the last position
	err := env.notebooks.MoveNotebook(env.db, work.ID.String(), nil, 99)
	require.NoError(t, err)

	assert.Equal(t, []string{"Home", "Reading", "Work"}, env.childNames(t, nil))
	assertDenseOrders(t, env, nil)
}

func TestMoveNotebook_KindViolations(t *testing.T) {
	env := newTestEnv(t)
	work := env.createStack(t, "Work")
	home := env.createStack(t, "Home")
	child := env.createNotebook(t, "Projects", work.ID)

	// a stack cannot be filed under a stack
	err := env.notebooks.MoveNotebook(env.db, home.ID.String(), &work.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidParent)

	// a notebook cannot become top-level
	err = env.notebooks.MoveNotebook(env.db, child.ID.String(), nil, 0)
	assert.ErrorIs(t, err, ErrInvalidParent)

	// a notebook cannot be its own parent
	err = env.notebooks.MoveNotebook(env.db, child.ID.String(), &child.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidParent)

	// the target parent must be a stack
	other := env.createNotebook(t, "Archive", work.ID)
	err = env.notebooks.MoveNotebook(env.db, other.ID.String(), &child.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidParent)
}

func TestDeleteNotebook_CascadesAndUnfiles(t *testing.T) {
	env := newTestEnv(t)
	work := env.createStack(t, "Work")
	projects := env.createNotebook(t, "Projects", work.ID)
	archive := env.createNotebook(t, "Archive", work.ID)
	note := env.createNote(t, "Standup", "<p>notes</p>", &projects.ID)

	err := env.notebooks.DeleteNotebook(env.db, work.ID.String())
	require.NoError(t, err)

	for _, id := range []uuid.UUID{work.ID, projects.ID, archive.ID} {
		_, err := env.notebooks.GetNotebookById(env.db, id.String())
		assert.ErrorIs(t, err, ErrNotebookNotFound)
	}

	// the note survives, unfiled
	got, err := env.notes.GetNoteById(env.db, note.ID.String())
	require.NoError(t, err)
	assert.Nil(t, got.NotebookID)
}

func TestDeleteNotebook_SingleChild(t *testing.T) {
	env := newTestEnv(t)
	work := env.createStack(t, "Work")
	projects := env.createNotebook(t, "Projects", work.ID)

	err := env.notebooks.DeleteNotebook(env.db, projects.ID.String())
	require.NoError(t, err)

	_, err = env.notebooks.GetNotebookById(env.db, work.ID.String())
	assert.NoError(t, err)
}

func TestListNotebooks_Ordering(t *testing.T) {
	env := newTestEnv(t)
	work := env.createStack(t, "Work")
	home := env.createStack(t, "Home")
	env.createNotebook(t, "Projects", work.ID)
	env.createNotebook(t, "Recipes", home.ID)

	all, err := env.notebooks.ListNotebooks(env.db)
	require.NoError(t, err)
	require.Len(t, all, 4)

	// stacks first, children after
	assert.Nil(t, all[0].ParentID)
	assert.Nil(t, all[1].ParentID)
	assert.NotNil(t, all[2].ParentID)
	assert.NotNil(t, all[3].ParentID)
}

func assertDenseOrders(t *testing.T, env *testEnv, parentID *uuid.UUID) {
	t.Helper()
	all, err := env.notebooks.ListNotebooks(env.db)
	require.NoError(t, err)

	orders := []int{}
	for _, nb := range all {
		if sameParent(nb.ParentID, parentID) {
			orders = append(orders, nb.SortOrder)
		}
	}
	for i, order := range orders {
		assert.Equal(t, i, order, "sort orders must be dense from zero")
	}
}
