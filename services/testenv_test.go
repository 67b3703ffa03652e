package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/models"
	"inkwell-notes/inkwell/storage"
	"inkwell-notes/inkwell/testutils"
)

// testEnv wires the full service graph over a real migrated store so tests
// cover the same transaction and index paths the app runs.
type testEnv struct {
	db        *database.Database
	fs        *storage.LocalFS
	files     *FileService
	notes     *NoteService
	trash     *TrashService
	notebooks NotebookServiceInterface
	tags      TagServiceInterface
	search    SearchServiceInterface
	ocr       OcrServiceInterface
	history   HistoryServiceInterface
	export    ExportServiceInterface
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := testutils.SetupTestStore(t)

	files := NewFileService(store.FS, store.Config.OCRMaxAttempts, zap.NewNop())
	notes := NewNoteService(files, zap.NewNop())

	return &testEnv{
		db:        store.DB,
		fs:        store.FS,
		files:     files,
		notes:     notes,
		trash:     NewTrashService(notes, zap.NewNop()),
		notebooks: NewNotebookService(),
		tags:      NewTagService(),
		search:    NewSearchService(),
		ocr:       NewOcrService(),
		history:   NewHistoryService(),
		export:    NewExportService(),
	}
}

func (e *testEnv) createStack(t *testing.T, name string) models.Notebook {
	t.Helper()
	stack, err := e.notebooks.CreateNotebook(e.db, name, nil)
	require.NoError(t, err)
	return stack
}

func (e *testEnv) createNotebook(t *testing.T, name string, stackID uuid.UUID) models.Notebook {
	t.Helper()
	notebook, err := e.notebooks.CreateNotebook(e.db, name, &stackID)
	require.NoError(t, err)
	return notebook
}

func (e *testEnv) createNote(t *testing.T, title, content string, notebookID *uuid.UUID) models.Note {
	t.Helper()
	note, err := e.notes.CreateNote(e.db, NoteInput{Title: title, Content: content, NotebookID: notebookID})
	require.NoError(t, err)
	return note
}

func (e *testEnv) childNames(t *testing.T, parentID *uuid.UUID) []string {
	t.Helper()
	all, err := e.notebooks.ListNotebooks(e.db)
	require.NoError(t, err)

	names := []string{}
	for _, nb := range all {
		if sameParent(nb.ParentID, parentID) {
			names = append(names, nb.Name)
		}
	}
	return names
}
