package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/canvasforge/canvasforge/backend-go/internal/document"
	"github.com/canvasforge/canvasforge/backend-go/internal/markup"
	"github.com/canvasforge/canvasforge/backend-go/internal/store"
	"github.com/canvasforge/canvasforge/backend-go/internal/typeid"
)

var (
	ErrNotFound      = errors.New("project not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidMarkup = errors.New("invalid markup")
)

const (
	TemplateEmpty  = "empty"
	TemplateSample = "sample"
)

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

type CreateParams struct {
	Name    string
	OwnerID string
	// Markup, when set, becomes the App component of the new project.
	Markup string
	// Template is TemplateEmpty or TemplateSample. Ignored when Markup is
	// set.
	Template string
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*store.Project, error) {
	projectID := typeid.Project.New()

	doc, err := initialDocument(projectID, p)
	if err != nil {
		return nil, err
	}

	proj, err := s.store.CreateProject(ctx, store.Project{ID: projectID, Name: p.Name, OwnerID: p.OwnerID})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if _, err := s.SaveDocument(ctx, projectID, doc); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}
	return proj, nil
}

func initialDocument(projectID string, p CreateParams) (*document.Document, error) {
	var doc *document.Document
	switch {
	case p.Markup != "":
		var err error
		doc, err = markup.ProjectFromSnippet(projectID, p.Markup)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMarkup, err)
		}
	case p.Template == TemplateSample:
		doc = document.NewSampleDocument(projectID)
	default:
		doc = document.NewEmptyDocument(projectID, p.Name, time.Now().UTC().Format(time.RFC3339))
	}
	doc.Project.Name = p.Name
	return doc, nil
}

// Get returns the project when userID owns it.
func (s *Service) Get(ctx context.Context, projectID, userID string) (*store.Project, error) {
	proj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	if proj.OwnerID != userID {
		return nil, ErrForbidden
	}
	return proj, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]store.Project, error) {
	projects, err := s.store.ListProjectsForOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.Get(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *Service) GetLatestSnapshot(ctx context.Context, projectID, userID string) (*store.Snapshot, error) {
	if _, err := s.Get(ctx, projectID, userID); err != nil {
		return nil, err
	}
	snap, err := s.store.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// ExportMarkup renders a component of the latest saved document.
func (s *Service) ExportMarkup(ctx context.Context, projectID, userID, component string) (string, error) {
	if _, err := s.Get(ctx, projectID, userID); err != nil {
		return "", err
	}
	doc, err := s.LoadDocument(ctx, projectID)
	if err != nil {
		return "", err
	}
	out, err := markup.RenderComponent(doc, component)
	if err != nil {
		if errors.Is(err, markup.ErrComponentNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("render %s: %w", component, err)
	}
	return out, nil
}

// LoadDocument decodes the latest snapshot. It does not check access.
func (s *Service) LoadDocument(ctx context.Context, projectID string) (*document.Document, error) {
	snap, err := s.store.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	var doc document.Document
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return &doc, nil
}

// SaveDocument stores doc as the next snapshot version of the project.
func (s *Service) SaveDocument(ctx context.Context, projectID string, doc *document.Document) (*store.Snapshot, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	snap, err := s.store.CreateSnapshot(ctx, typeid.Snapshot.New(), projectID, data)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}
