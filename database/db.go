package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"

	"github.com/CrowderSoup/kanban-board/kanban"
)

//go:embed migrations/*.sql
var migrations embed.FS

// InitDB opens the sqlite database at path and brings its schema up to date.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers anyway; one connection also keeps :memory: databases intact.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("path", path).Debug("database initialized")
	return db, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(log.StandardLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// ErrStaleSnapshot is returned by Save when the stored snapshot is no longer
// the version the caller loaded, because another writer saved in between.
var ErrStaleSnapshot = errors.New("snapshot was changed by another writer")

// SnapshotService stores the whole board state as one JSON document per key.
// Every row carries a version that Save checks and bumps.
type SnapshotService struct {
	db *sql.DB
}

func NewSnapshotService(db *sql.DB) *SnapshotService {
	return &SnapshotService{db: db}
}

// Load reads the snapshot stored under key along with its version. A key that
// was never saved yields an empty state at version 0.
func (s *SnapshotService) Load(ctx context.Context, key string) (kanban.State, int64, error) {
	row := s.db.QueryRowContext(ctx, "SELECT data, version FROM snapshots WHERE key = ?", key)

	var (
		data    string
		version int64
	)
	err := row.Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return kanban.NewState(), 0, nil
	}
	if err != nil {
		return kanban.State{}, 0, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var state kanban.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return kanban.State{}, 0, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return state.Normalize(), version, nil
}

// Save replaces the snapshot stored under key, provided it is still at
// version. It returns the new version, or ErrStaleSnapshot when someone else
// saved first.
func (s *SnapshotService) Save(ctx context.Context, key string, state kanban.State, version int64) (int64, error) {
	data, err := json.Marshal(state.Normalize())
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if version == 0 {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO snapshots (key, data, version, updated_at)
			VALUES (?, ?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO NOTHING
		`, key, string(data))
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE snapshots
			SET data = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE key = ? AND version = ?
		`, string(data), key, version)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
	if n == 0 {
		return 0, ErrStaleSnapshot
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return version + 1, nil
}
