package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"inkwell-notes/inkwell/config"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const dbFileName = "inkwell.db"

type Database struct {
	DB *gorm.DB
}

// Setup opens (creating if needed) the store's single database file under
// the data directory and brings the schema up to date. WAL keeps readers
// concurrent with the single writer; busy_timeout covers short writer
// contention from the task pool.
func Setup(cfg config.Config) (*Database, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := filepath.Join(cfg.DataDir, dbFileName) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	gormConfig := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		PrepareStmt:            true,  // Cache prepared statements for better performance
		AllowGlobalUpdate:      false, // Prevent global updates without conditions
		SkipDefaultTransaction: true,  // Services manage their own transactions
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)

	log.Println("Running database migrations...")
	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Database migrations completed successfully")

	return &Database{DB: db}, nil
}

func (d *Database) Close() {
	if d.DB == nil {
		log.Println("Database connection is nil, nothing to close.")
		return
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		log.Printf("Failed to get database connection: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}
}

// RepairSequences realigns sqlite's autoincrement counters with the actual
// table contents. Importers call this after bulk inserts that preserved
// original ids; it is a no-op when the counters are already ahead.
func (d *Database) RepairSequences() error {
	for _, table := range []string{"events", "note_histories"} {
		err := d.DB.Exec(
			`UPDATE sqlite_sequence SET seq = (SELECT COALESCE(MAX(id), 0) FROM `+table+`)
			 WHERE name = ? AND seq < (SELECT COALESCE(MAX(id), 0) FROM `+table+`)`,
			table,
		).Error
		if err != nil {
			return fmt.Errorf("failed to repair sequence for %s: %w", table, err)
		}
	}
	return nil
}
