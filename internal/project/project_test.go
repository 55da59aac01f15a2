package project

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/canvasforge/canvasforge/backend-go/internal/auth"
	"github.com/canvasforge/canvasforge/backend-go/internal/store"
)

const snippet = `<div data-uid="aaa" style="width: 300px; height: 200px"><div data-uid="bbb"></div></div>`

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "projects.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	for _, id := range []string{"user_ada", "user_bob"} {
		if _, err := s.CreateUser(ctx, store.User{ID: id, Email: id + "@example.com", PasswordHash: "x", DisplayName: id}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	return NewService(s)
}

func TestCreateSeedsDocument(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := map[string]struct {
		params   CreateParams
		wantRoot string
	}{
		"empty":  {params: CreateParams{Name: "Empty"}, wantRoot: "container"},
		"markup": {params: CreateParams{Name: "Markup", Markup: snippet}, wantRoot: "aaa"},
		"sample": {params: CreateParams{Name: "Sample", Template: TemplateSample}, wantRoot: "container"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tt.params.OwnerID = "user_ada"
			proj, err := svc.Create(ctx, tt.params)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			doc, err := svc.LoadDocument(ctx, proj.ID)
			if err != nil {
				t.Fatalf("LoadDocument: %v", err)
			}
			if doc.Project.ID != proj.ID || doc.Project.Name != tt.params.Name {
				t.Errorf("document project = %+v, want id %s name %s", doc.Project, proj.ID, tt.params.Name)
			}
			if got := doc.Components["App"].Root; got != tt.wantRoot {
				t.Errorf("App root = %q, want %q", got, tt.wantRoot)
			}
		})
	}
}

func TestCreateRejectsInvalidMarkup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{Name: "Broken", OwnerID: "user_ada", Markup: `<div></div><div></div>`})
	if !errors.Is(err, ErrInvalidMarkup) {
		t.Fatalf("Create error = %v, want ErrInvalidMarkup", err)
	}
	projects, err := svc.List(ctx, "user_ada")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("List = %v, want no projects", projects)
	}
}

func TestOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	proj, err := svc.Create(ctx, CreateParams{Name: "Mine", OwnerID: "user_ada"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, proj.ID, "user_bob"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get by other user error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, proj.ID, "user_bob"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete by other user error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Get(ctx, "proj_missing", "user_ada"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, proj.ID, "user_ada"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, proj.ID, "user_ada"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func TestSaveDocumentBumpsVersion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	proj, err := svc.Create(ctx, CreateParams{Name: "Versions", OwnerID: "user_ada", Markup: snippet})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	doc, err := svc.LoadDocument(ctx, proj.ID)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	doc.Project.Name = "Renamed"
	snap, err := svc.SaveDocument(ctx, proj.ID, doc)
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if snap.Version != 2 {
		t.Errorf("Version = %d, want 2", snap.Version)
	}

	latest, err := svc.GetLatestSnapshot(ctx, proj.ID, "user_ada")
	if err != nil {
		t.Fatalf("GetLatestSnapshot: %v", err)
	}
	if latest.Version != 2 || !strings.Contains(string(latest.Document), `"Renamed"`) {
		t.Errorf("latest = version %d, want version 2 with the new name", latest.Version)
	}

	if _, err := svc.SaveDocument(ctx, "proj_missing", doc); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveDocument on missing project error = %v, want ErrNotFound", err)
	}
}

func newRouter(h *Handler, userID string) *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), userID)))
		})
	})
	r.HandleFunc("/api/projects", h.List).Methods("GET")
	r.HandleFunc("/api/projects", h.Create).Methods("POST")
	r.HandleFunc("/api/projects/{projectId}", h.Get).Methods("GET")
	r.HandleFunc("/api/projects/{projectId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/projects/{projectId}/snapshots/latest", h.GetLatestSnapshot).Methods("GET")
	r.HandleFunc("/api/projects/{projectId}/export/markup", h.ExportMarkup).Methods("GET")
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHandlers(t *testing.T) {
	svc := newTestService(t)
	ada := newRouter(NewHandler(svc), "user_ada")
	bob := newRouter(NewHandler(svc), "user_bob")

	rec := serve(ada, http.MethodPost, "/api/projects", `{"name":"Landing","markup":`+jsonString(snippet)+`}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	var created store.Project
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created project: %v", err)
	}

	tests := map[string]struct {
		router     http.Handler
		method     string
		target     string
		body       string
		wantStatus int
		wantBody   string
	}{
		"list":            {router: ada, method: "GET", target: "/api/projects", wantStatus: 200, wantBody: created.ID},
		"get":             {router: ada, method: "GET", target: "/api/projects/" + created.ID, wantStatus: 200, wantBody: `"Landing"`},
		"get forbidden":   {router: bob, method: "GET", target: "/api/projects/" + created.ID, wantStatus: 403},
		"get missing":     {router: ada, method: "GET", target: "/api/projects/proj_missing", wantStatus: 404},
		"snapshot":        {router: ada, method: "GET", target: "/api/projects/" + created.ID + "/snapshots/latest", wantStatus: 200, wantBody: `"version":1`},
		"export":          {router: ada, method: "GET", target: "/api/projects/" + created.ID + "/export/markup", wantStatus: 200, wantBody: `data-uid="bbb"`},
		"export unknown":  {router: ada, method: "GET", target: "/api/projects/" + created.ID + "/export/markup?component=Nope", wantStatus: 404},
		"create no name":  {router: ada, method: "POST", target: "/api/projects", body: `{}`, wantStatus: 400},
		"create template": {router: ada, method: "POST", target: "/api/projects", body: `{"name":"x","template":"bogus"}`, wantStatus: 400},
		"create markup":   {router: ada, method: "POST", target: "/api/projects", body: `{"name":"x","markup":"<p></p><p></p>"}`, wantStatus: 400},
		"delete other":    {router: bob, method: "DELETE", target: "/api/projects/" + created.ID, wantStatus: 403},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(tt.router, tt.method, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", rec.Body, tt.wantBody)
			}
		})
	}

	if rec := serve(ada, http.MethodDelete, "/api/projects/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
