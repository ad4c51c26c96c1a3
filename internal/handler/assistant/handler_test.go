package assistant

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wayfinderhq/wayfinder/backend/internal/classify"
	"github.com/wayfinderhq/wayfinder/backend/internal/routing"
	"github.com/wayfinderhq/wayfinder/backend/internal/service/conversation"
	"github.com/wayfinderhq/wayfinder/backend/internal/store"
)

func setupRouter() *chi.Mux {
	memStore := store.NewMemoryStore(30 * time.Minute)
	classifier := classify.New(nil, classify.DefaultConfig())
	dataRouter := routing.New(memStore, routing.DefaultConfig())
	conversations := conversation.NewService(memStore, classifier, dataRouter, nil, nil, time.Second)
	handler := New(conversations)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestCreateSession(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/session", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a session id")
	}
}

func TestPostMessageReturnsPlan(t *testing.T) {
	r := setupRouter()

	body := map[string]string{
		"sessionId": "s1",
		"message":   "What should I pack for Tokyo in March?",
	}
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var plan struct {
		Intent  string              `json:"intent"`
		Context map[string][]string `json:"context"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if plan.Intent != "packing" {
		t.Fatalf("expected packing intent, got %q", plan.Intent)
	}
	if len(plan.Context["location"]) != 1 {
		t.Fatalf("expected the location in context, got %v", plan.Context)
	}
}

func TestPostMessageMissingSessionID(t *testing.T) {
	r := setupRouter()
	payload := []byte(`{"message": "hello"}`)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestPostMessageMissingMessage(t *testing.T) {
	r := setupRouter()
	payload := []byte(`{"sessionId": "s1"}`)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetSessionAfterMessages(t *testing.T) {
	r := setupRouter()

	body, _ := json.Marshal(map[string]string{"sessionId": "s1", "message": "pack for Tokyo"})
	post := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(body))
	post.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), post)

	req := httptest.NewRequest(http.MethodGet, "/session/s1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var session struct {
		Turns []json.RawMessage `json:"turns"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(session.Turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(session.Turns))
	}
}

func TestGetUnknownSession(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/session/missing", nil)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	r := setupRouter()

	body, _ := json.Marshal(map[string]string{"sessionId": "s1", "message": "pack for Tokyo"})
	post := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewReader(body))
	post.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), post)

	del := httptest.NewRequest(http.MethodDelete, "/session/s1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, del)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	get := httptest.NewRequest(http.MethodGet, "/session/s1", nil)
	getResp := httptest.NewRecorder()
	r.ServeHTTP(getResp, get)

	if getResp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", getResp.Code)
	}
}
