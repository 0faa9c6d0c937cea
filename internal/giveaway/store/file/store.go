// Package file implements the giveaway store on a single JSON document.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "giveaway-engine/internal/common/errors"
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/giveaway/store"
)

type fileStore struct {
	path string
	mu   sync.Mutex
}

type Config struct {
	Path string
}

func NewStore(cfg *Config) (store.Store, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	return &fileStore{path: cfg.Path}, nil
}

func (s *fileStore) LoadAll(ctx context.Context) ([]*models.Giveaway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		// First access creates the document so later saves never race with a
		// missing parent state.
		if err := s.writeLocked([]*models.Giveaway{}); err != nil {
			return nil, apperrors.NewPersistenceError("create", err)
		}
		return []*models.Giveaway{}, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("read", err)
	}

	var giveaways []*models.Giveaway
	if err := json.Unmarshal(data, &giveaways); err != nil {
		// A corrupt document is fatal: there is no safe partial recovery.
		return nil, apperrors.NewPersistenceError("decode", err).WithDetail("path", s.path)
	}
	if giveaways == nil {
		giveaways = []*models.Giveaway{}
	}
	return giveaways, nil
}

func (s *fileStore) SaveAll(ctx context.Context, giveaways []*models.Giveaway) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeLocked(giveaways); err != nil {
		return apperrors.NewPersistenceError("write", err)
	}
	return nil
}

// writeLocked rewrites the document through a temp file and rename so a crash
// mid-write never leaves a torn document behind.
func (s *fileStore) writeLocked(giveaways []*models.Giveaway) error {
	data, err := json.MarshalIndent(giveaways, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal giveaways: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".giveaways-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
