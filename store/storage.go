// Package store persists saved matches.
package store

//go:generate go tool mockgen -destination=mocks/mock_storage.go -package=mocks github.com/lab1702/battletanks-web/store Storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/lab1702/battletanks-web/game"
)

var (
	ErrNotFound    = errors.New("save not found")
	ErrInvalidName = errors.New("invalid save name")
)

// SaveInfo describes a stored match.
type SaveInfo struct {
	Name      string    `json:"name"`
	Round     int       `json:"round"`
	Tanks     int       `json:"tanks"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Storage defines the interface for saved match persistence
type Storage interface {
	Save(ctx context.Context, name string, snap *game.Snapshot) error
	Load(ctx context.Context, name string) (*game.Snapshot, error)
	List(ctx context.Context) ([]SaveInfo, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateName checks that a save name is safe to use as a file name and key.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func encode(snap *game.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := snap.WriteRecord(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
