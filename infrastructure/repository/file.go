package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"textmacro-go/domain/regionset"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// ErrMalformed is returned when a region set file cannot be decoded.
var ErrMalformed = errors.New("malformed region set file")

// FileRegionSetRepository implements regionset.Repository on a JSON file.
type FileRegionSetRepository struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileRegionSetRepository creates a repository stored at path.
func NewFileRegionSetRepository(path string, logger *slog.Logger) *FileRegionSetRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileRegionSetRepository{
		path:   path,
		logger: logger.With("component", "file_repository"),
	}
}

// Path returns the file location.
func (r *FileRegionSetRepository) Path() string {
	return r.path
}

// Load reads the stored snapshot. A missing file returns nil. A malformed
// file returns an empty snapshot together with an ErrMalformed error, and
// sets that fail validation are skipped with an error while the rest load.
func (r *FileRegionSetRepository) Load(ctx context.Context) (*regionset.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read region sets: %w", err)
	}

	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		r.logger.Error("Region set file unreadable", "path", r.path, "error", err)
	}
	return snap, err
}

// Save writes the snapshot atomically through a temporary file.
func (r *FileRegionSetRepository) Save(ctx context.Context, snap *regionset.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return errors.New("snapshot is nil")
	}

	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), dirPermissions); err != nil {
		return fmt.Errorf("failed to create region set directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write region sets: %w", err)
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace region set file: %w", err)
	}

	r.logger.Debug("Region sets saved", "path", r.path, "sets", len(snap.Sets))
	return nil
}

// Encode writes snap as an indented region set document.
func Encode(w io.Writer, snap *regionset.Snapshot) error {
	doc, err := snapshotToDocument(snap)
	if err != nil {
		return fmt.Errorf("failed to encode region sets: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode region sets: %w", err)
	}
	return nil
}

// Decode reads a region set document. Undecodable input yields an empty
// snapshot and ErrMalformed. Invalid sets are skipped and reported.
func Decode(rd io.Reader) (*regionset.Snapshot, error) {
	var doc document
	if err := json.NewDecoder(rd).Decode(&doc); err != nil {
		return &regionset.Snapshot{Sets: map[string]regionset.RegionSet{}}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return documentToSnapshot(&doc)
}
