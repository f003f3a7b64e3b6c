package handlers

import (
	"net/http"
	"testing"

	"coopstore/internal/models"
	"coopstore/internal/store/storetest"
)

type authPayload struct {
	AccessToken string      `json:"accessToken"`
	User        models.User `json:"user"`
}

func TestRegisterLoginAndMe(t *testing.T) {
	mem := storetest.NewMemory()
	r := newTestRouter(mem)

	rec, env := perform(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Maria Clara", "email": "Maria@Campus.edu", "password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var registered authPayload
	decodeData(t, env, &registered)
	if registered.AccessToken == "" || registered.User.Email != "maria@campus.edu" {
		t.Fatalf("unexpected register payload: %+v", registered)
	}
	if registered.User.IsAdmin {
		t.Fatal("registered users must not be admins")
	}

	rec, _ = perform(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Copy", "email": "maria@campus.edu", "password": "secret123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}

	rec, _ = perform(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "maria@campus.edu", "password": "wrong-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", rec.Code)
	}

	rec, env = perform(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "maria@campus.edu", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	var login authPayload
	decodeData(t, env, &login)

	rec, env = perform(t, r, http.MethodGet, "/auth/me", "Bearer "+login.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me models.User
	decodeData(t, env, &me)
	if me.ID != registered.User.ID {
		t.Fatalf("expected %s, got %s", registered.User.ID.Hex(), me.ID.Hex())
	}
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(storetest.NewMemory())

	rec, env := perform(t, r, http.MethodPost, "/auth/register", "", map[string]string{"email": "not-an-email"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env.Message != "validation failed" {
		t.Fatalf("expected validation failure, got %q", env.Message)
	}
}

func TestLowerCamel(t *testing.T) {
	if got := lowerCamel("EmailAddress"); got != "emailAddress" {
		t.Fatalf("expected emailAddress, got %s", got)
	}
	if got := lowerCamel(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
