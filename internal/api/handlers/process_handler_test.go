package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	middleware "github.com/nvoskov/chatsplit/internal/api/middlewares"
	"github.com/nvoskov/chatsplit/internal/config"
	"github.com/nvoskov/chatsplit/internal/models"
)

// fakeDB is an in-memory stand-in for the Postgres client.
type fakeDB struct {
	users    map[string]*models.User
	runs     []*models.Run
	finished map[string]string // run id -> terminal status
	messages int
	chunks   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:    map[string]*models.User{},
		finished: map[string]string{},
	}
}

func (f *fakeDB) CreateUser(_ context.Context, u *models.User) error {
	if _, ok := f.users[u.Email]; ok {
		return fmt.Errorf("duplicate email")
	}
	f.users[u.Email] = u
	return nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.users[email], nil
}

func (f *fakeDB) CreateRun(_ context.Context, r *models.Run) error {
	f.runs = append(f.runs, r)
	return nil
}

func (f *fakeDB) ListRunsByUser(_ context.Context, userID string) ([]models.Run, error) {
	var out []models.Run
	for _, r := range f.runs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeDB) UpdateRunStatus(_ context.Context, id, status string) error {
	f.finished[id] = status
	return nil
}

func (f *fakeDB) FinishRun(_ context.Context, id, status string, messages, chunks int, _ string) error {
	f.finished[id] = status
	f.messages = messages
	f.chunks = chunks
	return nil
}

func (f *fakeDB) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		ScanBufferKB:       64,
		MaxRetainKB:        1024,
		ContextWindowBytes: 2048,
		MaxUploadMB:        16,
	}
}

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func authedRequest(method, target string, body *bytes.Buffer, contentType, userID string) *http.Request {
	r := httptest.NewRequest(method, target, body)
	r.Header.Set("Content-Type", contentType)
	if userID != "" {
		r = r.WithContext(middleware.WithUserID(r.Context(), userID))
	}
	return r
}

const sampleExport = `{"name":"chat","messages":[` +
	`{"id":1,"date":"2024-01-01T10:00:00","from":"Alice","from_id":"u1","text":"first message here","views":5},` +
	`{"id":2,"date":"2024-01-01T10:01:00","from":"Bob","from_id":"u2","text":"second one","views":7},` +
	`{"id":3,"date":"2024-01-01T10:02:00","from":"Alice","from_id":"u1","text":[{"type":"plain","text":"third"}],"views":9}` +
	`]}`

func TestProcessExportReturnsZip(t *testing.T) {
	db := newFakeDB()
	h := NewProcessHandler(db, nil, testConfig())

	body, ct := multipartUpload(t, "export.json", sampleExport, map[string]string{"format": "csv"})
	w := httptest.NewRecorder()
	h.ProcessExport(w, authedRequest(http.MethodPost, "/api/process", body, ct, "user-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("content type %q", got)
	}

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	// Metric toggles default on, so each chunk yields both a plain-text
	// and a structured part.
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["part_1.txt"] || !names["part_1.csv"] {
		t.Fatalf("parts %v", names)
	}

	if len(db.runs) != 1 {
		t.Fatalf("runs %d", len(db.runs))
	}
	run := db.runs[0]
	if db.finished[run.ID] != models.RunStatusComplete {
		t.Fatalf("final status %q", db.finished[run.ID])
	}
	if db.messages != 3 || db.chunks != 1 {
		t.Fatalf("recorded %d messages / %d chunks", db.messages, db.chunks)
	}
}

func TestProcessExportPlainWordStream(t *testing.T) {
	db := newFakeDB()
	h := NewProcessHandler(db, nil, testConfig())

	fields := map[string]string{
		"format":            "txt",
		"include_timestamp": "false",
		"include_sender":    "false",
		"include_reactions": "false",
		"include_reply_id":  "false",
	}
	body, ct := multipartUpload(t, "export.json", sampleExport, fields)
	w := httptest.NewRecorder()
	h.ProcessExport(w, authedRequest(http.MethodPost, "/api/process", body, ct, "user-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "part_1.txt" {
		t.Fatalf("entries %v", zr.File)
	}
	rc, _ := zr.File[0].Open()
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := buf.String(); got != "first message here second one third" {
		t.Fatalf("part %q", got)
	}
}

func TestProcessExportRejectsNonJSON(t *testing.T) {
	h := NewProcessHandler(newFakeDB(), nil, testConfig())
	body, ct := multipartUpload(t, "export.txt", "whatever", nil)
	w := httptest.NewRecorder()
	h.ProcessExport(w, authedRequest(http.MethodPost, "/api/process", body, ct, "user-1"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestProcessExportUnauthenticated(t *testing.T) {
	h := NewProcessHandler(newFakeDB(), nil, testConfig())
	body, ct := multipartUpload(t, "export.json", sampleExport, nil)
	w := httptest.NewRecorder()
	h.ProcessExport(w, authedRequest(http.MethodPost, "/api/process", body, ct, ""))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", w.Code)
	}
}

func TestProcessExportEmptyExport(t *testing.T) {
	db := newFakeDB()
	h := NewProcessHandler(db, nil, testConfig())
	body, ct := multipartUpload(t, "export.json", `{"messages":[]}`, nil)
	w := httptest.NewRecorder()
	h.ProcessExport(w, authedRequest(http.MethodPost, "/api/process", body, ct, "user-1"))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if len(db.runs) != 1 || db.finished[db.runs[0].ID] != models.RunStatusFailed {
		t.Fatalf("run must be marked failed: %v", db.finished)
	}
}

func TestListRuns(t *testing.T) {
	db := newFakeDB()
	db.runs = append(db.runs,
		&models.Run{ID: "r1", UserID: "user-1", Status: models.RunStatusComplete},
		&models.Run{ID: "r2", UserID: "someone-else", Status: models.RunStatusComplete},
	)
	h := NewProcessHandler(db, nil, testConfig())

	r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	r = r.WithContext(middleware.WithUserID(r.Context(), "user-1"))
	w := httptest.NewRecorder()
	h.ListRuns(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var runs []models.Run
	if err := json.NewDecoder(w.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "r1" {
		t.Fatalf("runs %+v", runs)
	}
}

func TestListRunsEmptyIsArray(t *testing.T) {
	h := NewProcessHandler(newFakeDB(), nil, testConfig())
	r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	r = r.WithContext(middleware.WithUserID(r.Context(), "user-1"))
	w := httptest.NewRecorder()
	h.ListRuns(w, r)

	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Fatalf("body %q", got)
	}
}
