// Package storage owns the binary blobs under the data directory: the
// content-named files tree referenced by note content and the per-id
// attachment directories. Database rows referencing these paths are managed
// by the services layer; this package never touches the database.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var (
	ErrEmptyFile    = errors.New("file content is empty")
	ErrFileTooLarge = errors.New("file exceeds maximum size")
)

const (
	filesDirName       = "files"
	attachmentsDirName = "attachments"
	blobNameLen        = 20
)

// StoredFile describes a blob written into the files tree.
type StoredFile struct {
	RelPath string // relative to the files root, e.g. "ab/abc123.png"
	Hash    string // sha256 of the content, for dedup diagnostics
	Mime    string
	Size    int64
}

// LocalFS writes and removes blobs under a single data directory. Blob
// names mix the content hash with a per-store monotonic counter and
// wall-clock nanoseconds, so storing identical bytes twice never collides
// on a path.
type LocalFS struct {
	dataDir string
	maxSize int64
	counter atomic.Uint64
	log     *zap.Logger
}

func NewLocalFS(dataDir string, maxSize int64, log *zap.Logger) (*LocalFS, error) {
	for _, dir := range []string{filesDirName, attachmentsDirName} {
		if err := os.MkdirAll(filepath.Join(dataDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return &LocalFS{dataDir: dataDir, maxSize: maxSize, log: log}, nil
}

// StoreFile validates and writes content into the files tree and returns
// its relative path, content hash and resolved MIME type.
func (s *LocalFS) StoreFile(data []byte, filename string) (StoredFile, error) {
	if len(data) == 0 {
		return StoredFile{}, ErrEmptyFile
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return StoredFile{}, ErrFileTooLarge
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	mtype := mimetype.Detect(data)
	ext := resolveExtension(mtype, filename)

	name := s.nextBlobName(contentHash) + ext
	shard := name[:2]
	rel := shard + "/" + name

	dir := filepath.Join(s.dataDir, filesDirName, shard)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("failed to create shard directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return StoredFile{}, fmt.Errorf("failed to write file: %w", err)
	}

	return StoredFile{
		RelPath: rel,
		Hash:    contentHash,
		Mime:    mtype.String(),
		Size:    int64(len(data)),
	}, nil
}

// StoreAttachment writes an explicit attachment blob under its own id
// directory and returns the data-directory-relative path.
func (s *LocalFS) StoreAttachment(id string, filename string, data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", "", ErrFileTooLarge
	}

	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		base = "attachment"
	}

	dir := filepath.Join(s.dataDir, attachmentsDirName, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create attachment directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, base), data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write attachment: %w", err)
	}

	localPath := filepath.ToSlash(filepath.Join(attachmentsDirName, id, base))
	return localPath, mimetype.Detect(data).String(), nil
}

// FilePath resolves a files-tree relative path to an absolute path.
func (s *LocalFS) FilePath(rel string) string {
	return filepath.Join(s.dataDir, filesDirName, filepath.FromSlash(rel))
}

// FileExists reports whether a files-tree blob is present on disk.
func (s *LocalFS) FileExists(rel string) bool {
	_, err := os.Stat(s.FilePath(rel))
	return err == nil
}

// RemoveFile deletes a files-tree blob and, if the shard directory became
// empty, the directory itself. Failures are logged and swallowed: the
// database is already consistent and a leaked blob is reclaimed by a later
// sweep.
func (s *LocalFS) RemoveFile(rel string) {
	path := s.FilePath(rel)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove file blob", zap.String("path", rel), zap.Error(err))
		return
	}
	// best-effort; fails while the shard still holds other blobs
	_ = os.Remove(filepath.Dir(path))
}

// RemoveAttachment deletes an attachment blob by its data-directory
// relative path, removing the id directory when it empties.
func (s *LocalFS) RemoveAttachment(localPath string) {
	if !strings.HasPrefix(localPath, attachmentsDirName+"/") {
		s.log.Warn("refusing to remove path outside attachments tree", zap.String("path", localPath))
		return
	}
	path := filepath.Join(s.dataDir, filepath.FromSlash(localPath))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove attachment blob", zap.String("path", localPath), zap.Error(err))
		return
	}
	_ = os.Remove(filepath.Dir(path))
}

// ResetCounter repositions the blob-name nonce, used by importers after
// bulk inserts that preserved original ids.
func (s *LocalFS) ResetCounter(n uint64) {
	s.counter.Store(n)
}

func (s *LocalFS) nextBlobName(contentHash string) string {
	nonce := s.counter.Add(1)
	seed := fmt.Sprintf("%s:%d:%d", contentHash, nonce, time.Now().UnixNano())
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:blobNameLen]
}

// resolveExtension prefers the MIME-derived extension for images, where
// filenames are often synthetic, and the filename extension otherwise.
func resolveExtension(mtype *mimetype.MIME, filename string) string {
	if strings.HasPrefix(mtype.String(), "image/") {
		if ext := mtype.Extension(); ext != "" {
			return ext
		}
	}
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	return mtype.Extension()
}
