package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	srv := setupServer(t, 100)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "user@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	if len(env.Data) == 0 {
		t.Fatalf("expected user payload")
	}

	token, userID := srv.login(t, "user@example.com", "password123")
	if token == "" || userID == "" {
		t.Fatalf("expected token and user id")
	}

	rec, env = srv.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "user@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusConflict || env.Code != "USER_EXISTS" {
		t.Fatalf("expected 409 got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandler_RegisterInvalidRole(t *testing.T) {
	srv := setupServer(t, 100)

	rec, _ := srv.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "user2@example.com",
		"password": "password123",
		"role":     "admin",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAuthHandler_RegisterWeakPassword(t *testing.T) {
	srv := setupServer(t, 100)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "weak@example.com",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest || env.Code != "INVALID_INPUT" {
		t.Fatalf("expected 400 INVALID_INPUT got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	srv := setupServer(t, 100)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    testAdminEmail,
		"password": "badpass",
	})
	if rec.Code != http.StatusUnauthorized || env.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	srv := setupServer(t, 100)

	rec, _ := srv.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": "invalid"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	rec, env := srv.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d", rec.Code)
	}
	var data struct {
		Tokens struct {
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	decode(t, env.Data, &data)

	rec, _ = srv.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": data.Tokens.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
}
