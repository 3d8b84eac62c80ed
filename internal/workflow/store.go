package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/biosphere-bio/workflow-api/pkg/models"
)

// ErrNotFound is returned when no record exists for a workflow id,
// in memory or on disk.
var ErrNotFound = errors.New("workflow not found")

// Store persists one JSON document per workflow job under dir and keeps
// every known record mirrored in an in-memory cache. Create and Update
// are synchronous durable writes: the call has not succeeded until the
// document is on disk. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	dir  string
	jobs map[string]*models.JobRecord
}

// NewStore creates the document directory if needed and rehydrates the
// cache from any documents already on disk, so records survive restarts.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workflow store directory: %w", err)
	}
	s := &Store{
		dir:  dir,
		jobs: make(map[string]*models.JobRecord),
	}
	s.loadExisting()
	return s, nil
}

func (s *Store) loadExisting() {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		slog.Warn("listing workflow documents", "dir", s.dir, "error", err)
		return
	}
	for _, path := range paths {
		rec, err := readDocument(path)
		if err != nil {
			slog.Warn("skipping malformed workflow document", "file", path, "error", err)
			continue
		}
		s.jobs[rec.ID] = rec
	}
}

// Create allocates a fresh id, persists a record with status created and
// no results, and returns a copy of it.
func (s *Store) Create() (*models.JobRecord, error) {
	now := time.Now().UTC()
	rec := &models.JobRecord{
		ID:        uuid.New().String(),
		Status:    models.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
		Results:   []models.ResultItem{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeDocument(rec); err != nil {
		return nil, err
	}
	s.jobs[rec.ID] = rec
	return rec.Clone(), nil
}

// Update rewrites UpdatedAt and persists the full record, overwriting
// any prior on-disk version. Records whose stored status is already
// terminal are left untouched.
func (s *Store) Update(rec *models.JobRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record with id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.jobs[rec.ID]; ok && prev.Status.IsTerminal() {
		slog.Warn("ignoring update to terminal workflow", "workflow_id", rec.ID, "status", prev.Status)
		return nil
	}

	clone := rec.Clone()
	clone.UpdatedAt = time.Now().UTC()
	if err := s.writeDocument(clone); err != nil {
		return err
	}
	s.jobs[clone.ID] = clone
	return nil
}

// Get checks the cache first; on a miss it materializes the record from
// disk and caches it. Returns ErrNotFound only when no durable record
// exists (or the document cannot be parsed).
func (s *Store) Get(id string) (*models.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.jobs[id]; ok {
		return rec.Clone(), nil
	}

	rec, err := readDocument(s.documentPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		slog.Warn("loading workflow document", "workflow_id", id, "error", err)
		return nil, ErrNotFound
	}
	s.jobs[id] = rec
	return rec.Clone(), nil
}

// List merges cached and on-disk records, skipping duplicates by id and
// malformed documents, sorted by CreatedAt descending (newest first).
func (s *Store) List() ([]*models.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.JobRecord, 0, len(s.jobs))
	for _, rec := range s.jobs {
		out = append(out, rec.Clone())
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing workflow documents: %w", err)
	}
	for _, path := range paths {
		id := strings.TrimSuffix(filepath.Base(path), ".json")
		if _, ok := s.jobs[id]; ok {
			continue
		}
		rec, err := readDocument(path)
		if err != nil {
			slog.Warn("skipping malformed workflow document", "file", path, "error", err)
			continue
		}
		s.jobs[rec.ID] = rec
		out = append(out, rec.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Forget drops a record from the in-memory cache only. Used to roll back
// a half-created job when its upload cannot be persisted; any durable
// document is left for later reconciliation.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *Store) documentPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) writeDocument(rec *models.JobRecord) error {
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding workflow %s: %w", rec.ID, err)
	}
	if err := os.WriteFile(s.documentPath(rec.ID), payload, 0o644); err != nil {
		return fmt.Errorf("persisting workflow %s: %w", rec.ID, err)
	}
	return nil
}

func readDocument(path string) (*models.JobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec models.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("document %s has no workflow_id", filepath.Base(path))
	}
	if rec.Results == nil {
		rec.Results = []models.ResultItem{}
	}
	return &rec, nil
}
