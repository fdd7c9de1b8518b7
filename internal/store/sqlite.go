package store

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"blog-sync/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLiteStore keeps counters in the posts table. Increments are a single
// INSERT ... ON CONFLICT ... RETURNING statement.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the database at path and applies the schema.
// ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	// One writer; also keeps ":memory:" on a single shared connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "apply %q", pragma)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) IncrementOrCreate(ctx context.Context, slug string) (model.ViewRecord, error) {
	if slug == "" {
		return model.ViewRecord{}, ErrEmptySlug
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (slug, view, last) VALUES (?, 1, ?)
		ON CONFLICT(slug) DO UPDATE SET view = posts.view + 1, last = excluded.last
		RETURNING slug, view, last`, slug, s.stamp())

	rec, err := scanView(row)
	if err != nil {
		return model.ViewRecord{}, errors.Wrapf(err, "increment %q", slug)
	}
	return rec, nil
}

func (s *SQLiteStore) GetOrCreateMany(ctx context.Context, slugs []string) ([]model.ViewRecord, error) {
	unique, err := uniqueSlugs(slugs)
	if err != nil {
		return nil, err
	}
	if len(unique) == 0 {
		return []model.ViewRecord{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	stamp := s.stamp()
	for _, slug := range unique {
		if _, err := tx.ExecContext(ctx, `INSERT INTO posts (slug, view, last) VALUES (?, 0, ?) ON CONFLICT(slug) DO NOTHING`, slug, stamp); err != nil {
			return nil, errors.Wrapf(err, "create %q", slug)
		}
	}

	args := make([]any, len(unique))
	for i, slug := range unique {
		args[i] = slug
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	rows, err := tx.QueryContext(ctx, `SELECT slug, view, last FROM posts WHERE slug IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select views")
	}
	defer rows.Close()

	found := make(map[string]model.ViewRecord, len(unique))
	for rows.Next() {
		rec, err := scanView(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan view")
		}
		found[rec.Slug] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate views")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return inOrder(unique, found)
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) stamp() string {
	return s.now().UTC().Format(sqliteTimeLayout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(r rowScanner) (model.ViewRecord, error) {
	var (
		rec  model.ViewRecord
		last string
	)
	if err := r.Scan(&rec.Slug, &rec.View, &last); err != nil {
		return model.ViewRecord{}, err
	}
	if t, err := time.Parse(sqliteTimeLayout, last); err == nil {
		rec.LastUpdated = t
	}
	return rec, nil
}
