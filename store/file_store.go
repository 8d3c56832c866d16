package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lab1702/battletanks-web/game"
)

const saveExt = ".sav"

// FileStore keeps one save record per file in a directory.
type FileStore struct {
	dir    string
	armory *game.Armory
	logger *log.Logger
	mutex  sync.RWMutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, armory *game.Armory, logger *log.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		armory: armory,
		logger: logger.With("store", "file"),
	}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+saveExt)
}

// Save writes the snapshot to a temporary file and renames it into place.
func (s *FileStore) Save(ctx context.Context, name string, snap *game.Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create save file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	s.logger.Debug("Saved match", "name", name, "round", snap.Round, "tanks", len(snap.Tanks))
	return nil
}

// Load reads and validates a saved match.
func (s *FileStore) Load(ctx context.Context, name string) (*game.Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	data, err := os.ReadFile(s.path(name))
	s.mutex.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	snap, err := game.ReadSnapshot(bytes.NewReader(data), s.armory)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return snap, nil
}

// List returns every readable save, newest first. Corrupt files are skipped.
func (s *FileStore) List(ctx context.Context) ([]SaveInfo, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}

	var saves []SaveInfo
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), saveExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), saveExt)
		info, err := s.describe(name, e)
		if err != nil {
			s.logger.Warn("Skipping unreadable save", "name", name, "err", err)
			continue
		}
		saves = append(saves, info)
	}

	sort.Slice(saves, func(i, j int) bool {
		return saves[i].UpdatedAt.After(saves[j].UpdatedAt)
	})
	return saves, nil
}

func (s *FileStore) describe(name string, e os.DirEntry) (SaveInfo, error) {
	fi, err := e.Info()
	if err != nil {
		return SaveInfo{}, err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return SaveInfo{}, err
	}
	snap, err := game.ReadSnapshot(bytes.NewReader(data), s.armory)
	if err != nil {
		return SaveInfo{}, err
	}
	return SaveInfo{Name: name, Round: snap.Round, Tanks: len(snap.Tanks), UpdatedAt: fi.ModTime()}, nil
}

// Delete removes a saved match.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// Close is a no-op for files.
func (s *FileStore) Close() error {
	return nil
}
