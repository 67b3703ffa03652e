package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell-notes/inkwell/models"
)

func TestRecordOpen_DenormalizesTitles(t *testing.T) {
	env := newTestEnv(t)
	stack := env.createStack(t, "Work")
	notebook := env.createNotebook(t, "Projects", stack.ID)
	note := env.createNote(t, "Standup", "", &notebook.ID)

	require.NoError(t, env.history.RecordOpen(env.db, note.ID.String()))

	entries, err := env.history.GetRecentHistory(env.db, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, note.ID, entries[0].NoteID)
	assert.Equal(t, "Standup", entries[0].NoteTitle)
	assert.Equal(t, "Projects", entries[0].NotebookTitle)
	assert.Equal(t, "Work", entries[0].StackTitle)
}

func TestRecordOpen_HistorySurvivesNotebookDeletion(t *testing.T) {
	env := newTestEnv(t)
	stack := env.createStack(t, "Work")
	notebook := env.createNotebook(t, "Projects", stack.ID)
	note := env.createNote(t, "Standup", "", &notebook.ID)

	require.NoError(t, env.history.RecordOpen(env.db, note.ID.String()))
	require.NoError(t, env.notebooks.DeleteNotebook(env.db, stack.ID.String()))

	entries, err := env.history.GetRecentHistory(env.db, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Projects", entries[0].NotebookTitle)
	assert.Equal(t, "Work", entries[0].StackTitle)
}

func TestRecordOpen_UnfiledNote(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "Loose", "", nil)

	require.NoError(t, env.history.RecordOpen(env.db, note.ID.String()))

	entries, err := env.history.GetRecentHistory(env.db, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].NotebookTitle)
	assert.Empty(t, entries[0].StackTitle)
}

func TestGetRecentHistory_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	a := env.createNote(t, "A", "", nil)
	b := env.createNote(t, "B", "", nil)

	require.NoError(t, env.history.RecordOpen(env.db, a.ID.String()))
	require.NoError(t, env.history.RecordOpen(env.db, b.ID.String()))
	require.NoError(t, env.history.RecordOpen(env.db, a.ID.String()))

	entries, err := env.history.GetRecentHistory(env.db, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, a.ID, entries[0].NoteID)
	assert.Equal(t, b.ID, entries[1].NoteID)
}

func TestCleanupHistory(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "N", "", nil)

	require.NoError(t, env.history.RecordOpen(env.db, note.ID.String()))
	require.NoError(t, env.history.RecordOpen(env.db, note.ID.String()))

	// age one entry past the retention window
	past := time.Now().UTC().Add(-100 * 24 * time.Hour)
	err := env.db.DB.Model(&models.NoteHistory{}).
		Where("id = (SELECT MIN(id) FROM note_histories)").
		Update("opened_at", past).Error
	require.NoError(t, err)

	removed, err := env.history.CleanupHistory(env.db, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	entries, err := env.history.GetRecentHistory(env.db, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
