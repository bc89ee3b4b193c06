package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"movieverse/handlers"
	"movieverse/models"
	"movieverse/services/users"
)

func newUsersHandler(t *testing.T) *handlers.UsersHandler {
	t.Helper()
	svc, err := users.NewService(t.TempDir(), []byte("test-secret"))
	if err != nil {
		t.Fatalf("new users service: %v", err)
	}
	return handlers.NewUsersHandler(svc)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSignupAndLoginFlow(t *testing.T) {
	h := newUsersHandler(t)

	rec := postJSON(t, h.Signup, "/api/users/signup", map[string]any{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool        `json:"success"`
		User    models.User `json:"user"`
		Token   string      `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("passwordHash")) {
		t.Fatal("password hash leaked in response")
	}

	var hooked string
	h.LoginHook = func(userID string) { hooked = userID }

	rec = postJSON(t, h.Login, "/api/users/login", map[string]any{
		"email": "alice@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	if hooked != resp.User.ID {
		t.Fatalf("login hook got %q, want %q", hooked, resp.User.ID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := newUsersHandler(t)

	postJSON(t, h.Signup, "/api/users/signup", map[string]any{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})

	rec := postJSON(t, h.Login, "/api/users/login", map[string]any{
		"email": "alice@example.com", "password": "nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	h := newUsersHandler(t)

	body := map[string]any{"name": "Alice", "email": "alice@example.com", "password": "secret1"}
	postJSON(t, h.Signup, "/api/users/signup", body)

	rec := postJSON(t, h.Signup, "/api/users/signup", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}
