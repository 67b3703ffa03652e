package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell-notes/inkwell/models"
)

func registerFile(t *testing.T, env *testEnv, path string) models.OcrFile {
	t.Helper()
	file := models.OcrFile{ID: uuid.New(), Path: path, AttemptsLeft: 3}
	require.NoError(t, env.db.DB.Create(&file).Error)
	return file
}

func TestGetPendingFiles_FiltersCandidates(t *testing.T) {
	env := newTestEnv(t)

	image := registerFile(t, env, "ab/scan.png")
	registerFile(t, env, "cd/doc.pdf") // not an image
	done := registerFile(t, env, "ef/done.jpg")
	exhausted := registerFile(t, env, "01/fail.png")

	require.NoError(t, env.ocr.UpsertText(env.db, done.ID, "eng", "already recognized", "h"))
	require.NoError(t, env.db.DB.Model(&models.OcrFile{}).
		Where("id = ?", exhausted.ID).
		Update("attempts_left", 0).Error)

	pending, err := env.ocr.GetPendingFiles(env.db, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, image.ID, pending[0].ID)
}

func TestUpsertText_ReplacesPerLanguage(t *testing.T) {
	env := newTestEnv(t)
	file := registerFile(t, env, "ab/scan.png")

	require.NoError(t, env.ocr.UpsertText(env.db, file.ID, "eng", "first pass", "h1"))
	require.NoError(t, env.ocr.UpsertText(env.db, file.ID, "deu", "erster durchlauf", "h2"))
	require.NoError(t, env.ocr.UpsertText(env.db, file.ID, "eng", "second pass", "h3"))

	texts, err := env.ocr.GetTextsByFile(env.db, file.ID)
	require.NoError(t, err)
	require.Len(t, texts, 2)
	assert.Equal(t, "deu", texts[0].Lang)
	assert.Equal(t, "eng", texts[1].Lang)
	assert.Equal(t, "second pass", texts[1].Text)
	assert.Equal(t, "h3", texts[1].Hash)
}

func TestUpsertText_Validation(t *testing.T) {
	env := newTestEnv(t)
	file := registerFile(t, env, "ab/scan.png")

	err := env.ocr.UpsertText(env.db, file.ID, "", "text", "h")
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = env.ocr.UpsertText(env.db, uuid.New(), "eng", "text", "h")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestMarkFailed_ExhaustsAttempts(t *testing.T) {
	env := newTestEnv(t)
	file := registerFile(t, env, "ab/scan.png")

	for i := 0; i < 3; i++ {
		require.NoError(t, env.ocr.MarkFailed(env.db, file.ID, "engine crashed"))
	}

	var updated models.OcrFile
	require.NoError(t, env.db.DB.First(&updated, "id = ?", file.ID).Error)
	assert.Equal(t, 0, updated.AttemptsLeft)
	require.NotNil(t, updated.LastError)
	assert.Equal(t, "engine crashed", *updated.LastError)

	// attempts never go negative
	require.NoError(t, env.ocr.MarkFailed(env.db, file.ID, "again"))
	require.NoError(t, env.db.DB.First(&updated, "id = ?", file.ID).Error)
	assert.Equal(t, 0, updated.AttemptsLeft)

	pending, err := env.ocr.GetPendingFiles(env.db, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUpsertText_ClearsLastError(t *testing.T) {
	env := newTestEnv(t)
	file := registerFile(t, env, "ab/scan.png")

	require.NoError(t, env.ocr.MarkFailed(env.db, file.ID, "transient"))
	require.NoError(t, env.ocr.UpsertText(env.db, file.ID, "eng", "recovered", "h"))

	var updated models.OcrFile
	require.NoError(t, env.db.DB.First(&updated, "id = ?", file.ID).Error)
	assert.Nil(t, updated.LastError)
}

func TestMarkFailed_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	err := env.ocr.MarkFailed(env.db, uuid.New(), "nope")
	assert.ErrorIs(t, err, ErrFileNotFound)
}
