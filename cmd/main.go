package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"inkwell-notes/inkwell/config"
	"inkwell-notes/inkwell/database"
	"inkwell-notes/inkwell/logger"
	"inkwell-notes/inkwell/services"
	"inkwell-notes/inkwell/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Setup(cfg)
	if err != nil {
		zlog.Fatal("Failed to set up database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RepairSequences(); err != nil {
		zlog.Warn("Failed to repair sequences", zap.Error(err))
	}

	fs, err := storage.NewLocalFS(cfg.DataDir, cfg.MaxFileSizeBytes, zlog)
	if err != nil {
		zlog.Fatal("Failed to set up file storage", zap.Error(err))
	}

	fileService := services.NewFileService(fs, cfg.OCRMaxAttempts, zlog)
	noteService := services.NewNoteService(fileService, zlog)
	trashService := services.NewTrashService(noteService, zlog)

	services.NotebookServiceInstance = services.NewNotebookService()
	services.FileServiceInstance = fileService
	services.NoteServiceInstance = noteService
	services.TrashServiceInstance = trashService
	services.TagServiceInstance = services.NewTagService()
	services.SearchServiceInstance = services.NewSearchService()
	services.OcrServiceInstance = services.NewOcrService()
	services.HistoryServiceInstance = services.NewHistoryService()
	services.ExportServiceInstance = services.NewExportService()

	scheduler := cron.New()

	_, err = scheduler.AddFunc("@daily", func() {
		retention := time.Duration(cfg.TrashRetentionDays) * 24 * time.Hour
		if err := trashService.PurgeExpired(db, retention); err != nil {
			zlog.Error("Trash purge failed", zap.Error(err))
		}
	})
	if err != nil {
		zlog.Fatal("Failed to schedule trash purge", zap.Error(err))
	}

	_, err = scheduler.AddFunc("@daily", func() {
		retention := time.Duration(cfg.HistoryRetentionDays) * 24 * time.Hour
		removed, err := services.HistoryServiceInstance.CleanupHistory(db, retention)
		if err != nil {
			zlog.Error("History cleanup failed", zap.Error(err))
			return
		}
		if removed > 0 {
			zlog.Info("History cleanup done", zap.Int64("removed", removed))
		}
	})
	if err != nil {
		zlog.Fatal("Failed to schedule history cleanup", zap.Error(err))
	}

	_, err = scheduler.AddFunc("@every 6h", func() {
		if err := fileService.SweepOrphans(db); err != nil {
			zlog.Error("Orphan sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		zlog.Fatal("Failed to schedule orphan sweep", zap.Error(err))
	}

	scheduler.Start()
	defer scheduler.Stop()

	zlog.Info("Store ready", zap.String("data_dir", cfg.DataDir))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down")
}
