package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"inkwell-notes/inkwell/database"
)

// SearchResult is a single hit returned by SearchNotes. Snippet carries a
// short excerpt with the matched terms wrapped in brackets when the hit
// came from note text, or an OCR excerpt when it came from embedded files.
type SearchResult struct {
	NoteID    uuid.UUID `json:"note_id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SearchServiceInterface interface {
	SearchNotes(db *database.Database, query string, limit int) ([]SearchResult, error)
}

type SearchService struct{}

// SearchNotes matches the query against the note text index and against
// recognized text of embedded files, merges the two result sets by note and
// orders them by last modification, newest first. Trashed notes are never
// returned.
func (s *SearchService) SearchNotes(db *database.Database, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	textHits, err := s.searchNoteText(db, query)
	if err != nil {
		return nil, err
	}

	ocrHits, err := s.searchOcrText(db, query)
	if err != nil {
		return nil, err
	}

	// Text hits win on snippet quality, so they go into the map first and
	// OCR hits only fill notes not already present.
	seen := make(map[uuid.UUID]bool, len(textHits))
	merged := make([]SearchResult, 0, len(textHits)+len(ocrHits))
	for _, hit := range textHits {
		if seen[hit.NoteID] {
			continue
		}
		seen[hit.NoteID] = true
		merged = append(merged, hit)
	}
	for _, hit := range ocrHits {
		if seen[hit.NoteID] {
			continue
		}
		seen[hit.NoteID] = true
		merged = append(merged, hit)
	}

	sortResultsByRecency(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *SearchService) searchNoteText(db *database.Database, query string) ([]SearchResult, error) {
	rows := []SearchResult{}
	err := db.DB.Raw(`
		SELECT n.id AS note_id,
		       n.title AS title,
		       snippet(note_fts, 2, '[', ']', '…', 12) AS snippet,
		       n.updated_at AS updated_at
		FROM note_fts
		JOIN notes n ON n.id = note_fts.note_id
		WHERE note_fts MATCH ?
		  AND n.deleted_at IS NULL`,
		escapeMatchQuery(query),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SearchService) searchOcrText(db *database.Database, query string) ([]SearchResult, error) {
	rows := []SearchResult{}
	err := db.DB.Raw(`
		SELECT DISTINCT n.id AS note_id,
		       n.title AS title,
		       '' AS snippet,
		       n.updated_at AS updated_at
		FROM ocr_texts t
		JOIN note_files nf ON nf.file_id = t.file_id
		JOIN notes n ON n.id = nf.note_id
		WHERE t.text LIKE ?
		  AND n.deleted_at IS NULL`,
		"%"+query+"%",
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// escapeMatchQuery turns free text into a phrase query. Quoting each token
// keeps FTS5 operators like NEAR, AND and '-' from being interpreted.
func escapeMatchQuery(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func sortResultsByRecency(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})
}

// NewSearchService creates a new instance of SearchService
func NewSearchService() SearchServiceInterface {
	return &SearchService{}
}

var SearchServiceInstance SearchServiceInterface
