// Package store persists the last seen snapshot and its fingerprint.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/law-makers/reviewwatch/internal/runctx"
	"github.com/law-makers/reviewwatch/pkg/models"
)

// FileStore keeps State as a pretty-printed JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// fileState mirrors models.State but keeps extract_time as text so files
// written with a zone-less timestamp still load.
type fileState struct {
	Results *struct {
		Reviews     []models.ReviewRecord `json:"reviews"`
		FinalResult string                `json:"final_result"`
		ExtractTime string                `json:"extract_time"`
	} `json:"results"`
	Hash string `json:"hash"`
}

// Load returns the stored snapshot and fingerprint. A missing, unreadable or
// corrupt file yields (nil, "") so the run behaves like a first run.
func (s *FileStore) Load(ctx context.Context) (*models.Snapshot, string) {
	logger := runctx.Logger(ctx)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info().Str("path", s.path).Msg("No previous state, treating as first run")
		} else {
			logger.Warn().Err(err).Str("path", s.path).Msg("Failed to read state file, treating as first run")
		}
		return nil, ""
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		logger.Warn().Err(err).Str("path", s.path).Msg("State file is corrupt, treating as first run")
		return nil, ""
	}
	if st.Hash == "" || st.Results == nil {
		return nil, ""
	}

	return &models.Snapshot{
		Reviews:     st.Results.Reviews,
		FinalResult: st.Results.FinalResult,
		ExtractTime: parseTime(st.Results.ExtractTime),
	}, st.Hash
}

// Save replaces the state file. The new content is written to a temporary
// file in the same directory and renamed over the old one, so a crash leaves
// either the old or the new state, never a mix.
func (s *FileStore) Save(ctx context.Context, snap *models.Snapshot, hash string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(models.State{Results: snap, Hash: hash}); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod state: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	runctx.Logger(ctx).Info().Str("path", s.path).Str("hash", hash).Msg("State saved")
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// parseTime accepts RFC 3339 and zone-less ISO timestamps. Anything else
// becomes the zero time; the timestamp is informational only.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
