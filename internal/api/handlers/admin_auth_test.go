package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lamitie/server/internal/auth"
)

func newAuthHandler(t *testing.T) *AdminAuthHandler {
	t.Helper()
	hash, err := auth.HashPassword("festival-admin-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	manager := auth.NewJWTManager("test-secret-at-least-32-characters!!", time.Hour, "lamitie")
	return NewAdminAuthHandler(hash, manager, time.Hour, "test")
}

func doLogin(h *AdminAuthHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	handler := newAuthHandler(t)

	rec := doLogin(handler, `{"password":"festival-admin-pass"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("response should carry a token")
	}
	if resp.Role != auth.RoleAdmin {
		t.Errorf("role = %q, want admin", resp.Role)
	}

	claims, err := handler.JWTManager.Validate(resp.Token)
	if err != nil {
		t.Fatalf("issued token should validate: %v", err)
	}
	if claims.Role != auth.RoleAdmin {
		t.Errorf("claims role = %q", claims.Role)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("login should set the auth cookie")
	}
	if !cookie.HttpOnly {
		t.Error("auth cookie must be HttpOnly")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler := newAuthHandler(t)

	rec := doLogin(handler, `{"password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginMissingPassword(t *testing.T) {
	handler := newAuthHandler(t)

	rec := doLogin(handler, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	handler := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/logout", nil)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" && c.MaxAge >= 0 {
			t.Error("logout should expire the auth cookie")
		}
	}
}
