package testutils

import (
	"testing"

	"go.uber.org/zap"

	"inkwell-notes/inkwell/config"
	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/storage"
)

// TestStore bundles a migrated on-disk database and a blob store rooted in
// a temporary directory, so tests exercise the same code paths the app
// runs, including the text index.
type TestStore struct {
	DB      *database.Database
	FS      *storage.LocalFS
	DataDir string
	Config  config.Config
}

// SetupTestStore opens a fresh store under t.TempDir(). The directory and
// database are cleaned up when the test finishes.
func SetupTestStore(t *testing.T) *TestStore {
	t.Helper()

	cfg := config.Config{
		AppEnv:               "test",
		DataDir:              t.TempDir(),
		DBMaxIdleConns:       2,
		DBMaxOpenConns:       4,
		MaxFileSizeBytes:     32 << 20,
		TrashRetentionDays:   30,
		HistoryRetentionDays: 90,
		OCRMaxAttempts:       3,
		LogLevel:             "error",
	}

	db, err := database.Setup(cfg)
	if err != nil {
		t.Fatalf("failed to set up test database: %v", err)
	}
	t.Cleanup(db.Close)

	fs, err := storage.NewLocalFS(cfg.DataDir, cfg.MaxFileSizeBytes, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to set up test blob store: %v", err)
	}

	return &TestStore{DB: db, FS: fs, DataDir: cfg.DataDir, Config: cfg}
}
