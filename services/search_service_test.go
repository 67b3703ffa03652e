package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell-notes/inkwell/models"
)

func TestSearchNotes_FindsCreatedNote(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "Quarterly planning", "<p>discuss the migration timeline</p>", nil)
	env.createNote(t, "Groceries", "<p>milk and eggs</p>", nil)

	results, err := env.search.SearchNotes(env.db, "migration timeline", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, note.ID, results[0].NoteID)
	assert.Equal(t, "Quarterly planning", results[0].Title)
	assert.Contains(t, results[0].Snippet, "[migration]")
}

func TestSearchNotes_MatchesTitle(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "Migration checklist", "<p>unrelated body</p>", nil)

	results, err := env.search.SearchNotes(env.db, "checklist", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, note.ID, results[0].NoteID)
}

func TestSearchNotes_ReflectsUpdates(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "Draft", "<p>first version</p>", nil)

	newContent := "<p>rewritten entirely</p>"
	_, err := env.notes.UpdateNote(env.db, note.ID.String(), NoteUpdate{Content: &newContent})
	require.NoError(t, err)

	results, err := env.search.SearchNotes(env.db, "first version", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = env.search.SearchNotes(env.db, "rewritten", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchNotes_ExcludesTrashed(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(t, "Secret", "<p>hidden content</p>", nil)

	require.NoError(t, env.trash.TrashNote(env.db, note.ID.String()))

	results, err := env.search.SearchNotes(env.db, "hidden", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	// restoring brings it back
	_, err = env.trash.RestoreNote(env.db, note.ID.String())
	require.NoError(t, err)

	results, err = env.search.SearchNotes(env.db, "hidden", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchNotes_FindsRecognizedText(t *testing.T) {
	env := newTestEnv(t)

	stored, err := env.files.StoreFile([]byte("scan bytes"), "scan.txt")
	require.NoError(t, err)
	note := env.createNote(t, "Scanned receipt", `<img src="files/`+stored.RelPath+`">`, nil)

	var file models.OcrFile
	require.NoError(t, env.db.DB.First(&file, "path = ?", stored.RelPath).Error)
	require.NoError(t, env.ocr.UpsertText(env.db, file.ID, "eng", "total amount 42.50 dollars", "h1"))

	results, err := env.search.SearchNotes(env.db, "42.50", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, note.ID, results[0].NoteID)
}

func TestSearchNotes_OperatorsAreLiteral(t *testing.T) {
	env := newTestEnv(t)
	env.createNote(t, "Ops", "<p>alpha AND beta</p>", nil)

	// FTS operators in the query must not change its meaning or error out
	results, err := env.search.SearchNotes(env.db, `alpha AND beta`, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = env.search.SearchNotes(env.db, `"quoted" NEAR -thing`, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchNotes_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	env.createNote(t, "Anything", "<p>text</p>", nil)

	results, err := env.search.SearchNotes(env.db, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchNotes_LimitAndOrder(t *testing.T) {
	env := newTestEnv(t)
	env.createNote(t, "First", "<p>common keyword here</p>", nil)
	second := env.createNote(t, "Second", "<p>common keyword here</p>", nil)

	// touching the second note makes it the most recent
	touched := "<p>common keyword here updated</p>"
	_, err := env.notes.UpdateNote(env.db, second.ID.String(), NoteUpdate{Content: &touched})
	require.NoError(t, err)

	results, err := env.search.SearchNotes(env.db, "keyword", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, second.ID, results[0].NoteID)
}
