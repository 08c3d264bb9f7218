// Package callsigns implements the callsign configuration store: a single
// JSON document on disk holding every per-callsign card configuration.
// Mutations reread the file, apply the change, and rewrite the whole
// document; a store-level mutex serializes the read-modify-write cycle and
// writes go through a temp file plus rename so readers never observe a
// partial document.
package callsigns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

// document is the on-disk shape of callsigns.json.
type document struct {
	Callsigns []*models.CallsignConfig `json:"callsigns"`
}

// Store is the JSON-file-backed callsign configuration store.
type Store struct {
	path string

	mu sync.Mutex
}

// NewStore returns a Store over the given file path. The file is created on
// first write; a missing file reads as an empty store.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Summary is the public listing shape exposed on the landing page.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Store) load() (*document, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("failed to read callsign store: %w", err)
	}

	doc := &document{}
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("failed to parse callsign store: %w", err)
	}
	return doc, nil
}

func (s *Store) save(doc *document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal callsign store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o770); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o660); err != nil {
		return fmt.Errorf("failed to write callsign store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace callsign store: %w", err)
	}
	return nil
}

func find(doc *document, id string) *models.CallsignConfig {
	for _, c := range doc.Callsigns {
		if strings.EqualFold(c.ID, id) {
			return c
		}
	}
	return nil
}

// List returns id/name summaries for every configured callsign.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	result := make([]Summary, 0, len(doc.Callsigns))
	for _, c := range doc.Callsigns {
		result = append(result, Summary{ID: c.ID, Name: c.Name})
	}
	return result, nil
}

// All returns every configuration, for the admin surface.
func (s *Store) All(ctx context.Context) ([]*models.CallsignConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Callsigns, nil
}

// Get looks up a configuration by id, case-insensitively.
func (s *Store) Get(ctx context.Context, id string) (*models.CallsignConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	c := find(doc, id)
	if c == nil {
		return nil, common.ErrNotFound
	}
	return c, nil
}

// Create adds a new callsign configuration. The id is lowercased; a
// duplicate id is rejected. Missing text positions and QRZ link get the
// template defaults.
func (s *Store) Create(ctx context.Context, cfg *models.CallsignConfig) (*models.CallsignConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	cfg.ID = strings.ToLower(strings.TrimSpace(cfg.ID))
	if cfg.ID == "" {
		return nil, common.ErrValidation
	}
	if find(doc, cfg.ID) != nil {
		return nil, common.ErrAlreadyExists
	}

	if cfg.Name == "" {
		cfg.Name = strings.ToUpper(cfg.ID)
	}
	if cfg.QRZLink == "" {
		cfg.QRZLink = "https://www.qrz.com/db/" + strings.ToUpper(cfg.ID)
	}
	if len(cfg.TextPositions) == 0 {
		cfg.TextPositions = models.DefaultTextPositions()
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	doc.Callsigns = append(doc.Callsigns, cfg)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Update replaces the mutable fields of an existing configuration.
func (s *Store) Update(ctx context.Context, id string, name, qrzLink string, positions map[string]models.TextPosition) (*models.CallsignConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	c := find(doc, id)
	if c == nil {
		return nil, common.ErrNotFound
	}

	if name != "" {
		c.Name = name
	}
	if qrzLink != "" {
		c.QRZLink = qrzLink
	}
	if len(positions) > 0 {
		c.TextPositions = positions
	}
	c.UpdatedAt = time.Now().UTC()

	if err := s.save(doc); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a configuration. Uploaded card files are deliberately left
// on disk.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	kept := doc.Callsigns[:0]
	found := false
	for _, c := range doc.Callsigns {
		if strings.EqualFold(c.ID, id) {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return common.ErrNotFound
	}

	doc.Callsigns = kept
	return s.save(doc)
}
