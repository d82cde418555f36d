package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestSignInWithPassword(t *testing.T) {
	accessToken := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL)
		}
		if r.Header.Get("apikey") != "anon" {
			t.Fatalf("expected apikey header, got %q", r.Header.Get("apikey"))
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "aluno@if.com" || body["password"] != "senha123" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"error_code": "invalid_credentials", "msg": "Invalid login credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": "refresh-1",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1", "email": "aluno@if.com"},
		})
	}))
	defer srv.Close()

	accessToken = mintToken(t, "user-1", time.Hour)
	client := NewClient(srv.URL, "anon", testSecret, 5*time.Second)

	session, err := client.SignInWithPassword(context.Background(), "aluno@if.com", "senha123")
	if err != nil {
		t.Fatalf("sign-in error: %v", err)
	}
	if session.Principal.ID != "user-1" || session.Principal.Email != "aluno@if.com" {
		t.Fatalf("unexpected principal %+v", session.Principal)
	}
	if session.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected refresh token %q", session.RefreshToken)
	}
	if session.ExpiresAt.IsZero() || session.Expired(time.Now().UTC()) {
		t.Fatalf("expected a live expiry, got %s", session.ExpiresAt)
	}

	_, err = client.SignInWithPassword(context.Background(), "aluno@if.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "invalid_credentials" {
		t.Fatalf("unexpected error mapping %+v", apiErr)
	}
}

func TestSignInRejectsBadSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Signed with a different secret than the client verifies with.
		claims := jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": token, "refresh_token": "r"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon", testSecret, 5*time.Second)
	if _, err := client.SignInWithPassword(context.Background(), "a@b.c", "x"); err == nil {
		t.Fatalf("expected signature verification to fail")
	}
}

func TestIsAuthError(t *testing.T) {
	if !IsAuthError(&APIError{Status: http.StatusUnauthorized}) {
		t.Fatalf("expected 401 to be an auth error")
	}
	if !IsAuthError(&APIError{Status: http.StatusForbidden}) {
		t.Fatalf("expected 403 to be an auth error")
	}
	if IsAuthError(&APIError{Status: http.StatusInternalServerError}) {
		t.Fatalf("expected 500 not to be an auth error")
	}
	if IsAuthError(errors.New("plain")) {
		t.Fatalf("expected plain error not to be an auth error")
	}
}

func TestQueryOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/usuarios" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/vnd.pgrst.object+json" {
			t.Fatalf("expected singular accept header, got %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Fatalf("expected caller bearer token, got %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Query().Get("id") {
		case "eq.user-1":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "user-1", "nome": "Maria", "tipo": "aluno"})
		default:
			w.WriteHeader(http.StatusNotAcceptable)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon", "", 5*time.Second)

	var row struct {
		ID   string  `json:"id"`
		Nome *string `json:"nome"`
	}
	if err := client.QueryOne(context.Background(), "user-token", "usuarios", Filter{Column: "id", Value: "user-1"}, &row); err != nil {
		t.Fatalf("query one error: %v", err)
	}
	if row.ID != "user-1" || row.Nome == nil || *row.Nome != "Maria" {
		t.Fatalf("unexpected row %+v", row)
	}

	err := client.QueryOne(context.Background(), "user-token", "usuarios", Filter{Column: "id", Value: "missing"}, &row)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryManyOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("order"); got != "data.asc" {
			t.Fatalf("expected order=data.asc, got %q", got)
		}
		if got := r.URL.Query().Get("select"); got != "id,titulo" {
			t.Fatalf("expected select=id,titulo, got %q", got)
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{{"id": 1, "titulo": "Semana acadêmica"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon", "", 5*time.Second)
	var rows []struct {
		ID     int64  `json:"id"`
		Titulo string `json:"titulo"`
	}
	opts := QueryOpts{Select: "id,titulo", OrderBy: "data"}
	if err := client.QueryMany(context.Background(), "tok", "eventos", opts, &rows); err != nil {
		t.Fatalf("query many error: %v", err)
	}
	if len(rows) != 1 || rows[0].Titulo != "Semana acadêmica" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestInsertAndDeleteOne(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("Prefer") != "return=minimal" {
				t.Fatalf("expected return=minimal, got %q", r.Header.Get("Prefer"))
			}
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			deleted = r.URL.Query().Get("id")
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon", "", 5*time.Second)
	if err := client.Insert(context.Background(), "tok", "usuarios", map[string]string{"id": "u1"}); err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if err := client.DeleteOne(context.Background(), "tok", "usuarios", "u1"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if deleted != "eq.u1" {
		t.Fatalf("expected delete filter eq.u1, got %q", deleted)
	}
}
