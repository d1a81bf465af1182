package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"beacon.live/data"
)

func testAuth(t *testing.T) *Auth {
	t.Helper()
	store, err := data.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewAuth(store)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	a := testAuth(t)

	rec := postJSON(t, a.SignupHandler, "/auth/signup", credentials{Username: "alice", Password: "secret"})
	if rec.Code != 201 {
		t.Fatalf("Status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if sessionCookie(rec) == nil {
		t.Error("Signup should set a session cookie")
	}

	rec = postJSON(t, a.SignupHandler, "/auth/signup", credentials{Username: "alice", Password: "other"})
	if rec.Code != 409 {
		t.Errorf("Duplicate signup status = %d, want 409", rec.Code)
	}

	rec = postJSON(t, a.SignupHandler, "/auth/signup", credentials{Username: "bob"})
	if rec.Code != 400 {
		t.Errorf("Missing password status = %d, want 400", rec.Code)
	}
}

func TestLoginAndCheck(t *testing.T) {
	a := testAuth(t)
	a.Store.CreateUser("alice", "secret")

	rec := postJSON(t, a.LoginHandler, "/auth/login", credentials{Username: "alice", Password: "wrong"})
	if rec.Code != 401 {
		t.Fatalf("Bad password status = %d, want 401", rec.Code)
	}

	rec = postJSON(t, a.LoginHandler, "/auth/login", credentials{Username: "alice", Password: "secret"})
	if rec.Code != 200 {
		t.Fatalf("Login status = %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("Login should set a session cookie")
	}

	req := httptest.NewRequest("GET", "/auth/check", nil)
	req.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	a.CheckHandler(rec2, req)

	var resp struct {
		Authenticated bool   `json:"authenticated"`
		Username      string `json:"username"`
	}
	if err := json.Unmarshal(rec2.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if !resp.Authenticated || resp.Username != "alice" {
		t.Errorf("Check = %+v, want authenticated alice", resp)
	}
}

func TestCheckWithoutSession(t *testing.T) {
	a := testAuth(t)

	req := httptest.NewRequest("GET", "/auth/check", nil)
	rec := httptest.NewRecorder()
	a.CheckHandler(rec, req)

	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Authenticated {
		t.Error("Expected unauthenticated without a cookie")
	}
}

func TestLogout(t *testing.T) {
	a := testAuth(t)
	a.Store.CreateUser("alice", "secret")

	rec := postJSON(t, a.LoginHandler, "/auth/login", credentials{Username: "alice", Password: "secret"})
	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("Login should set a session cookie")
	}

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.AddCookie(cookie)
	a.LogoutHandler(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/auth/check", nil)
	req.AddCookie(cookie)
	if user := a.UserFor(req); user != nil {
		t.Errorf("Expected no user after logout, got %s", user.Username)
	}
}
