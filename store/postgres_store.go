package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/lab1702/battletanks-web/game"
)

// PostgresStore keeps saved matches in a PostgreSQL table
type PostgresStore struct {
	db     *sql.DB
	armory *game.Armory
	logger *log.Logger
}

// NewPostgresStore connects, pings and creates the schema if needed
func NewPostgresStore(ctx context.Context, connectionString string, armory *game.Armory, logger *log.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, armory: armory, logger: logger.With("store", "postgres")}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (ps *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS saved_matches (
		name TEXT PRIMARY KEY,
		round INTEGER NOT NULL,
		tanks INTEGER NOT NULL,
		record TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`
	_, err := ps.db.ExecContext(ctx, schema)
	return err
}

// Save inserts or replaces a saved match
func (ps *PostgresStore) Save(ctx context.Context, name string, snap *game.Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO saved_matches (name, round, tanks, record)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (name)
	DO UPDATE SET
		round = $2, tanks = $3, record = $4,
		updated_at = NOW()
	`
	if _, err := ps.db.ExecContext(ctx, query, name, snap.Round, len(snap.Tanks), string(data)); err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	ps.logger.Debug("Saved match", "name", name, "round", snap.Round, "tanks", len(snap.Tanks))
	return nil
}

// Load reads and validates a saved match
func (ps *PostgresStore) Load(ctx context.Context, name string) (*game.Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	var record string
	err := ps.db.QueryRowContext(ctx, `SELECT record FROM saved_matches WHERE name = $1`, name).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}

	snap, err := game.ReadSnapshot(bytes.NewReader([]byte(record)), ps.armory)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return snap, nil
}

// List returns saved matches, newest first
func (ps *PostgresStore) List(ctx context.Context) ([]SaveInfo, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT name, round, tanks, updated_at FROM saved_matches ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	var saves []SaveInfo
	for rows.Next() {
		var info SaveInfo
		if err := rows.Scan(&info.Name, &info.Round, &info.Tanks, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan save: %w", err)
		}
		saves = append(saves, info)
	}
	return saves, rows.Err()
}

// Delete removes a saved match
func (ps *PostgresStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	res, err := ps.db.ExecContext(ctx, `DELETE FROM saved_matches WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete save: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Close closes the database connection
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
