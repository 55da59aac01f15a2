package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	document   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (project_id, version)
);
`

// Fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func (s *SQLite) CreateUser(ctx context.Context, u User) (*User, error) {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash, u.DisplayName, now)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", sqliteError(err))
	}
	return s.GetUserByID(ctx, u.ID)
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, created_at
		FROM users WHERE email = ?
	`, email)
	u, err := scanSQLiteUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", sqliteError(err))
	}
	return u, nil
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, created_at
		FROM users WHERE id = ?
	`, id)
	u, err := scanSQLiteUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, sqliteError(err))
	}
	return u, nil
}

func (s *SQLite) CreateProject(ctx context.Context, p Project) (*Project, error) {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.OwnerID, now, now)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", sqliteError(err))
	}
	return s.GetProject(ctx, p.ID)
}

func (s *SQLite) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	p, err := scanSQLiteProject(row)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, sqliteError(err))
	}
	return p, nil
}

func (s *SQLite) ListProjectsForOwner(ctx context.Context, ownerID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM projects WHERE owner_id = ?
		ORDER BY updated_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanSQLiteProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete project %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) CreateSnapshot(ctx context.Context, id, projectID string, doc json.RawMessage) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := s.timestamp()
	res, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, now, projectID)
	if err != nil {
		return nil, fmt.Errorf("touch project: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("touch project: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("create snapshot for %s: %w", projectID, ErrNotFound)
	}

	var version int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE project_id = ?
	`, projectID).Scan(&version)
	if err != nil {
		return nil, fmt.Errorf("next snapshot version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, project_id, version, document, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, projectID, version, string(doc), now)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", sqliteError(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}

	created, _ := time.Parse(timeLayout, now)
	return &Snapshot{ID: id, ProjectID: projectID, Version: version, Document: doc, CreatedAt: created}, nil
}

func (s *SQLite) GetLatestSnapshot(ctx context.Context, projectID string) (*Snapshot, error) {
	var snap Snapshot
	var doc, created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, document, created_at
		FROM snapshots WHERE project_id = ?
		ORDER BY version DESC LIMIT 1
	`, projectID).Scan(&snap.ID, &snap.ProjectID, &snap.Version, &doc, &created)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot of %s: %w", projectID, sqliteError(err))
	}
	snap.Document = json.RawMessage(doc)
	if snap.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse snapshot time: %w", err)
	}
	return &snap, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row scanner) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &created); err != nil {
		return nil, err
	}
	var err error
	if u.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse user time: %w", err)
	}
	return &u, nil
}

func scanSQLiteProject(row scanner) (*Project, error) {
	var p Project
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse project time: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse project time: %w", err)
	}
	return &p, nil
}

func sqliteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqlErr *sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.ExtendedCode() {
		case sqlite3.CONSTRAINT_UNIQUE, sqlite3.CONSTRAINT_PRIMARYKEY:
			return ErrDuplicate
		}
	}
	return err
}
