package store

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/lab1702/battletanks-web/game"
)

// Runs against a real database when TEST_DATABASE_URL is set.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url, game.DefaultArmory(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close()

	name := "pgtest_roundtrip"
	defer s.Delete(ctx, name)

	if err := s.Save(ctx, name, testSnapshot(2, "Alpha", "Bravo")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap, err := s.Load(ctx, name)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Round != 2 || len(snap.Tanks) != 2 {
		t.Errorf("loaded round %d with %d tanks", snap.Round, len(snap.Tanks))
	}

	saves, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, info := range saves {
		if info.Name == name && info.Tanks == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("saved match missing from list %+v", saves)
	}

	if _, err := s.Load(ctx, "pgtest_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) = %v, expected ErrNotFound", err)
	}
}
