package database

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"

	"inkwell-notes/inkwell/models"
	"inkwell-notes/inkwell/utils"

	"gorm.io/gorm"
)

// Schema history:
//
//	v1  flat notebooks, notes, tags, attachments
//	v2  notebook hierarchy (kind, sort_order)
//	v3  text projections, FTS mirror, embedded-file registry, canonical
//	    files/<relpath> content URLs
//	v4  note history, event log, note content hash/size
//
// Structural DDL is strictly additive and idempotent, so the full
// current-version schema is applied on every open; the version row only
// gates the one-shot data rewrites. Backfills run on every open and key
// off count mismatches, never off a migration flag.
const CurrentSchemaVersion = 4

// RunMigrations brings an existing or empty database file up to the
// current schema. Any failing step aborts store startup; steps are either
// wrapped in their own transaction or inherently idempotent, so a crashed
// migration re-runs cleanly on the next open.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.SchemaVersion{}); err != nil {
		return fmt.Errorf("failed to create schema version table: %w", err)
	}

	version, err := loadSchemaVersion(db)
	if err != nil {
		return err
	}
	if version == 0 {
		version = inferInitialVersion(db)
		log.Printf("No schema version recorded, inferred version %d", version)
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, CurrentSchemaVersion)
	}

	if err := applyStructuralMigrations(db); err != nil {
		return err
	}

	if version < 3 {
		if err := migrateLegacyFileURLs(db); err != nil {
			return fmt.Errorf("failed to rewrite legacy file URLs: %w", err)
		}
	}

	if err := saveSchemaVersion(db, CurrentSchemaVersion); err != nil {
		return err
	}

	if err := backfillNotebookHierarchy(db); err != nil {
		return fmt.Errorf("failed to backfill notebook hierarchy: %w", err)
	}
	if err := backfillNoteTexts(db); err != nil {
		return fmt.Errorf("failed to backfill note text projections: %w", err)
	}
	if err := rebuildSearchIndexIfStale(db); err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}

	return nil
}

func loadSchemaVersion(db *gorm.DB) (int, error) {
	var row models.SchemaVersion
	err := db.First(&row, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return row.Version, nil
}

func saveSchemaVersion(db *gorm.DB, version int) error {
	err := db.Exec(
		`INSERT INTO schema_versions (id, version) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET version = excluded.version`,
		version,
	).Error
	if err != nil {
		return fmt.Errorf("failed to save schema version: %w", err)
	}
	return nil
}

// inferInitialVersion classifies a database that predates version
// tracking by the structures it already has, so old user files migrate
// forward instead of being mistaken for empty ones.
func inferInitialVersion(db *gorm.DB) int {
	m := db.Migrator()
	if !m.HasTable(&models.Note{}) {
		// fresh file; the full current schema is about to be created
		return CurrentSchemaVersion
	}
	if !m.HasColumn(&models.Notebook{}, "kind") {
		return 1
	}
	if !m.HasTable(&models.NoteText{}) {
		return 2
	}
	if !m.HasTable(&models.NoteHistory{}) {
		return 3
	}
	return CurrentSchemaVersion
}

// applyStructuralMigrations applies the complete current-version DDL.
// Every step has create-if-not-exists semantics: columns introduced after
// v1 are guarded by explicit existence checks, AutoMigrate only adds what
// is missing, and the raw FTS DDL uses IF NOT EXISTS. Running this against
// any schema state is safe.
func applyStructuralMigrations(db *gorm.DB) error {
	m := db.Migrator()

	guardedColumns := []struct {
		model interface{}
		name  string
	}{
		{&models.Notebook{}, "kind"},
		{&models.Notebook{}, "sort_order"},
		{&models.Notebook{}, "external_id"},
		{&models.Note{}, "content_hash"},
		{&models.Note{}, "content_size"},
		{&models.Note{}, "deleted_at"},
		{&models.Note{}, "deleted_from_notebook_id"},
		{&models.Note{}, "meta"},
	}
	for _, col := range guardedColumns {
		if m.HasTable(col.model) && !m.HasColumn(col.model, col.name) {
			if err := m.AddColumn(col.model, col.name); err != nil {
				return fmt.Errorf("failed to add column %s: %w", col.name, err)
			}
		}
	}

	err := db.AutoMigrate(
		&models.Notebook{},
		&models.Note{},
		&models.NoteText{},
		&models.Tag{},
		&models.NoteTag{},
		&models.Attachment{},
		&models.OcrFile{},
		&models.NoteFile{},
		&models.OcrText{},
		&models.NoteHistory{},
		&models.Event{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if err := db.Exec(createNoteFTSTable).Error; err != nil {
		return fmt.Errorf("failed to create FTS table: %w", err)
	}

	return nil
}

// migrateLegacyFileURLs rewrites legacy embedded-file URL schemes in note
// content to the canonical files/<relpath> form and re-derives the text
// projection of every touched row. One transaction; re-running finds
// nothing left to rewrite.
func migrateLegacyFileURLs(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var notes []models.Note
		err := tx.
			Where("content LIKE ? OR content LIKE ?", "%inkwell-file://%", "%local-file://%").
			Find(&notes).Error
		if err != nil {
			return err
		}

		for i := range notes {
			note := &notes[i]
			if !utils.HasLegacyFileURLs(note.Content) {
				continue
			}
			note.Content = utils.CanonicalizeFileURLs(note.Content)
			sum := sha256.Sum256([]byte(note.Content))
			note.ContentHash = hex.EncodeToString(sum[:])
			note.ContentSize = int64(len(note.Content))

			err := tx.Model(&models.Note{}).Where("id = ?", note.ID).
				Updates(map[string]interface{}{
					"content":      note.Content,
					"content_hash": note.ContentHash,
					"content_size": note.ContentSize,
				}).Error
			if err != nil {
				return err
			}

			if err := UpsertNoteText(tx, note.ID, note.Title, utils.DerivePlainText(note.Content)); err != nil {
				return err
			}
		}

		if len(notes) > 0 {
			log.Printf("Rewrote legacy file URLs in %d notes", len(notes))
		}
		return nil
	})
}

// backfillNotebookHierarchy repairs rows migrated from the flat hierarchy:
// kind follows the parent pointer, and each sibling group is renumbered to
// a dense zero-based order with ties broken by (sort_order, name). Both
// passes are pure repairs keyed on observed state, so running them on
// every open is safe.
func backfillNotebookHierarchy(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Notebook{}).
			Where("parent_id IS NOT NULL AND kind <> ?", models.KindNotebook).
			Update("kind", models.KindNotebook).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.Notebook{}).
			Where("parent_id IS NULL AND kind <> ?", models.KindStack).
			Update("kind", models.KindStack).Error
		if err != nil {
			return err
		}

		var notebooks []models.Notebook
		if err := tx.Find(&notebooks).Error; err != nil {
			return err
		}

		groups := make(map[string][]*models.Notebook)
		for i := range notebooks {
			nb := &notebooks[i]
			key := ""
			if nb.ParentID != nil {
				key = nb.ParentID.String()
			}
			groups[key] = append(groups[key], nb)
		}

		for _, group := range groups {
			sort.Slice(group, func(i, j int) bool {
				if group[i].SortOrder != group[j].SortOrder {
					return group[i].SortOrder < group[j].SortOrder
				}
				return group[i].Name < group[j].Name
			})
			for i, nb := range group {
				if nb.SortOrder == i {
					continue
				}
				err := tx.Model(&models.Notebook{}).Where("id = ?", nb.ID).
					Update("sort_order", i).Error
				if err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// backfillNoteTexts derives projections for notes that lack one and drops
// projections whose note is gone. Keyed by count mismatch rather than a
// one-shot flag.
func backfillNoteTexts(db *gorm.DB) error {
	var noteCount, textCount int64
	if err := db.Model(&models.Note{}).Count(&noteCount).Error; err != nil {
		return err
	}
	if err := db.Model(&models.NoteText{}).Count(&textCount).Error; err != nil {
		return err
	}
	if noteCount == textCount {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`DELETE FROM note_texts WHERE note_id NOT IN (SELECT id FROM notes)`).Error
		if err != nil {
			return err
		}

		var missing []models.Note
		err = tx.Where("id NOT IN (SELECT note_id FROM note_texts)").Find(&missing).Error
		if err != nil {
			return err
		}
		for i := range missing {
			note := &missing[i]
			if err := UpsertNoteText(tx, note.ID, note.Title, utils.DerivePlainText(note.Content)); err != nil {
				return err
			}
		}

		if len(missing) > 0 {
			log.Printf("Backfilled text projections for %d notes", len(missing))
		}
		return nil
	})
}

// rebuildSearchIndexIfStale rebuilds the FTS mirror when its row count
// disagrees with note_texts, which covers both a freshly created mirror
// and one corrupted by an interrupted write.
func rebuildSearchIndexIfStale(db *gorm.DB) error {
	var textCount, ftsCount int64
	if err := db.Model(&models.NoteText{}).Count(&textCount).Error; err != nil {
		return err
	}
	if err := db.Raw(`SELECT COUNT(*) FROM note_fts`).Scan(&ftsCount).Error; err != nil {
		return err
	}
	if textCount == ftsCount {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM note_fts`).Error; err != nil {
			return err
		}
		return tx.Exec(
			`INSERT INTO note_fts (note_id, title, plain_text)
			 SELECT note_id, title, plain_text FROM note_texts`,
		).Error
	})
}
