package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New("sqlite", filepath.Join(t.TempDir(), "llm0.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestInsertRequestGeneratesID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := "user-42"
	id, err := db.InsertRequest(ctx, &models.RequestRecord{
		Path:             "https://api.openai.com/v1/chat/completions",
		Body:             []byte(`{"model":"gpt-4"}`),
		CredentialDigest: "abc123",
		UserID:           &user,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty generated id")
	}

	got, err := db.GetRequest(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != "https://api.openai.com/v1/chat/completions" || got.CredentialDigest != "abc123" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.UserID == nil || *got.UserID != "user-42" {
		t.Fatalf("user id not stored: %v", got.UserID)
	}
	if got.PromptID != nil {
		t.Fatalf("prompt id should be nil, got %v", *got.PromptID)
	}
	if string(got.Body) != `{"model":"gpt-4"}` {
		t.Fatalf("body = %s", got.Body)
	}
}

func TestInsertRequestAdoptsCallerID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.InsertRequest(ctx, &models.RequestRecord{ID: "req-fixed", Path: "/v1/models", CredentialDigest: "d"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "req-fixed" {
		t.Fatalf("id = %s, want req-fixed", id)
	}

	got, err := db.GetRequest(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Body) != `{}` {
		t.Fatalf("absent body should be stored as {}, got %s", got.Body)
	}

	if _, err := db.InsertRequest(ctx, &models.RequestRecord{ID: "req-fixed", Path: "/v1/models", CredentialDigest: "d"}); err == nil {
		t.Fatal("duplicate id should fail")
	}
}

func TestInsertResponseReferencesRequest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db.now = func() time.Time { return base }
	reqID, err := db.InsertRequest(ctx, &models.RequestRecord{Path: "/v1/completions", CredentialDigest: "d"})
	if err != nil {
		t.Fatal(err)
	}

	db.now = func() time.Time { return base.Add(time.Second) }
	if _, err := db.InsertResponse(ctx, &models.ResponseRecord{RequestID: reqID, Body: []byte(`{"id":"cmpl-1"}`), Status: 200}); err != nil {
		t.Fatal(err)
	}

	resp, err := db.GetResponse(ctx, reqID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.RequestID != reqID || resp.Status != 200 || string(resp.Body) != `{"id":"cmpl-1"}` {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req, err := db.GetRequest(ctx, reqID)
	if err != nil {
		t.Fatal(err)
	}
	if resp.CreatedAt.Before(req.CreatedAt) {
		t.Fatalf("response created_at %v before request %v", resp.CreatedAt, req.CreatedAt)
	}

	if _, err := db.InsertResponse(ctx, &models.ResponseRecord{RequestID: reqID, Body: []byte(`{}`)}); err == nil {
		t.Fatal("second response for the same request should fail")
	}
}

func TestInsertResponseUnknownRequest(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.InsertResponse(context.Background(), &models.ResponseRecord{RequestID: "missing", Body: []byte(`{}`)}); err == nil {
		t.Fatal("expected foreign key failure")
	}
}

func TestGetMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if _, err := db.GetRequest(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRequest err = %v", err)
	}
	if _, err := db.GetResponse(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetResponse err = %v", err)
	}
}

func TestNewUnsupportedDriver(t *testing.T) {
	if _, err := New("mysql", "x"); err == nil {
		t.Fatal("expected error")
	}
}
