// Package store persists users, projects and document snapshots. Postgres
// is the production backend; SQLite serves local use and tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/canvasforge/canvasforge/backend-go/internal/config"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Snapshot is one saved version of a project's document. Versions of a
// project start at 1 and grow by one per save.
type Snapshot struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Version   int             `json:"version"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Store interface {
	CreateUser(ctx context.Context, u User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)

	CreateProject(ctx context.Context, p Project) (*Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjectsForOwner(ctx context.Context, ownerID string) ([]Project, error)
	DeleteProject(ctx context.Context, id string) error

	// CreateSnapshot stores doc as the next version of the project and
	// touches the project's UpdatedAt.
	CreateSnapshot(ctx context.Context, id, projectID string, doc json.RawMessage) (*Snapshot, error)
	GetLatestSnapshot(ctx context.Context, projectID string) (*Snapshot, error)

	Close() error
}

// Open connects the backend selected by cfg.StoreDriver and applies the
// schema.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
