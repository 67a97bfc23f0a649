package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/arencloud/sitebucket/internal/config"
	"github.com/arencloud/sitebucket/internal/db"
	"github.com/arencloud/sitebucket/internal/logging"
	"github.com/arencloud/sitebucket/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// set up a temporary DB and router for integration-style tests
func setupTestServer(t *testing.T, clients ClientFactory) (*httptest.Server, *config.Config) {
	t.Helper()
	tmp := t.TempDir()
	cfg := &config.Config{Env: "test", HttpPort: "0", DBPath: filepath.Join(tmp, "test.db"), DBDriver: "sqlite", DefaultRegion: "sa-east-1"}
	logger := logging.Nop()
	if err := db.Init(cfg, logger); err != nil {
		t.Fatalf("db init: %v", err)
	}
	h := Router(cfg, logger, clients)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, cfg
}

// loginAs creates a user with the given role and returns its session cookie.
func loginAs(t *testing.T, ts *httptest.Server, email, role string) *http.Cookie {
	t.Helper()
	pass := "secretpass"
	hash, _ := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	u := models.User{Email: email, Password: string(hash), Role: role}
	if err := db.DB.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	body, _ := json.Marshal(map[string]string{"email": email, "password": pass})
	resp, err := http.Post(ts.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("login status=%d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "sbsess" {
			return c
		}
	}
	t.Fatalf("no session cookie returned")
	return nil
}

func doJSON(t *testing.T, method, url string, cookie *http.Cookie, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, _ := http.NewRequestWithContext(context.Background(), method, url, body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHealthAndVersion(t *testing.T) {
	ts, _ := setupTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("/health status=%d", resp.StatusCode)
	}
	resp, err = http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("/api/version status=%d", resp.StatusCode)
	}
	var v map[string]string
	json.NewDecoder(resp.Body).Decode(&v)
	if v["name"] != "sitebucket" {
		t.Fatalf("unexpected version payload: %v", v)
	}
}

func TestAuthLoginAndMe(t *testing.T) {
	ts, _ := setupTestServer(t, nil)
	cookie := loginAs(t, ts, "test@example.com", "viewer")
	resp := doJSON(t, "GET", ts.URL+"/api/v1/auth/me", cookie, nil)
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("/me status=%d", resp.StatusCode)
	}
	// no cookie: unauthorized
	resp2 := doJSON(t, "GET", ts.URL+"/api/v1/auth/me", nil, nil)
	defer resp2.Body.Close()
	if resp2.StatusCode != 401 {
		t.Fatalf("expected 401 without session, got %d", resp2.StatusCode)
	}
}

func TestViewerCannotMutateProviders(t *testing.T) {
	ts, _ := setupTestServer(t, nil)
	cookie := loginAs(t, ts, "viewer@example.com", "viewer")
	resp := doJSON(t, "POST", ts.URL+"/api/v1/providers", cookie, map[string]any{"name": "p", "region": "sa-east-1"})
	defer resp.Body.Close()
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403 for viewer, got %d", resp.StatusCode)
	}
}

func TestProviderCRUD(t *testing.T) {
	ts, _ := setupTestServer(t, nil)
	cookie := loginAs(t, ts, "editor@example.com", "editor")
	resp := doJSON(t, "POST", ts.URL+"/api/v1/providers", cookie, map[string]any{"name": "aws-sa", "type": "aws", "region": "sa-east-1"})
	if resp.StatusCode != 201 {
		t.Fatalf("create provider status=%d", resp.StatusCode)
	}
	var p models.Provider
	json.NewDecoder(resp.Body).Decode(&p)
	resp.Body.Close()
	if p.ID == 0 {
		t.Fatal("provider id not assigned")
	}

	resp = doJSON(t, "PUT", ts.URL+"/api/v1/providers/1", cookie, map[string]any{"region": "eu-west-1"})
	if resp.StatusCode != 200 {
		t.Fatalf("update provider status=%d", resp.StatusCode)
	}
	json.NewDecoder(resp.Body).Decode(&p)
	resp.Body.Close()
	if p.Region != "eu-west-1" {
		t.Fatalf("region not updated: %q", p.Region)
	}

	resp = doJSON(t, "DELETE", ts.URL+"/api/v1/providers/1", cookie, nil)
	resp.Body.Close()
	if resp.StatusCode != 204 {
		t.Fatalf("delete provider status=%d", resp.StatusCode)
	}
}
