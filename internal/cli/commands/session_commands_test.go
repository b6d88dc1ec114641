package commands

import (
	"strings"
	"testing"

	"github.com/storefront-dev/storefront/internal/cli/credstore"
)

// TestRefreshIntegration_RotatesAccessToken tests a successful refresh
func TestRefreshIntegration_RotatesAccessToken(t *testing.T) {
	api := testAPI()
	store := credstore.NewMemory()
	server := testServer()

	if err := runLogin("alice", "password123", "", WithAPIClient(api), WithTokenStore(store), WithServer(server)); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := runRefresh("", WithAPIClient(api), WithTokenStore(store), WithServer(server)); err != nil {
		t.Fatalf("expected refresh to succeed, got: %v", err)
	}

	access, _ := store.AccessToken()
	refresh, _ := store.RefreshToken()
	if access != "access-rotated" {
		t.Errorf("expected rotated access token, got '%s'", access)
	}
	if refresh != "refresh-abc" {
		t.Errorf("expected refresh token unchanged, got '%s'", refresh)
	}
}

// TestRefreshIntegration_RejectedTokenClearsSession tests fail-closed refresh
func TestRefreshIntegration_RejectedTokenClearsSession(t *testing.T) {
	api := testAPI()
	api.refreshFails = true
	store := credstore.NewMemory()
	server := testServer()

	if err := runLogin("alice", "password123", "", WithAPIClient(api), WithTokenStore(store), WithServer(server)); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	err := runRefresh("", WithAPIClient(api), WithTokenStore(store), WithServer(server))
	if err == nil {
		t.Fatal("expected refresh to fail")
	}

	if !store.Empty() {
		t.Error("expected both tokens cleared after rejected refresh")
	}
}

// TestLogoutIntegration_ClearsTokens tests logout, twice for idempotence
func TestLogoutIntegration_ClearsTokens(t *testing.T) {
	api := testAPI()
	store := credstore.NewMemory()
	server := testServer()

	if err := runLogin("alice", "password123", "", WithAPIClient(api), WithTokenStore(store), WithServer(server)); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := runLogout("", WithAPIClient(api), WithTokenStore(store), WithServer(server)); err != nil {
			t.Fatalf("logout attempt %d failed: %v", i+1, err)
		}
		if !store.Empty() {
			t.Errorf("expected empty store after logout attempt %d", i+1)
		}
	}
}

// TestWhoamiIntegration_RestoresSession tests whoami after a login
func TestWhoamiIntegration_RestoresSession(t *testing.T) {
	api := testAPI()
	store := credstore.NewMemory()
	server := testServer()

	if err := runLogin("alice", "password123", "", WithAPIClient(api), WithTokenStore(store), WithServer(server)); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := runWhoami("", WithAPIClient(api), WithTokenStore(store), WithServer(server)); err != nil {
		t.Fatalf("expected whoami to succeed, got: %v", err)
	}
}

// TestWhoamiIntegration_NotSignedIn tests whoami with an empty store
func TestWhoamiIntegration_NotSignedIn(t *testing.T) {
	err := runWhoami("", WithAPIClient(testAPI()), WithTokenStore(credstore.NewMemory()), WithServer(testServer()))
	if err == nil {
		t.Fatal("expected whoami to fail when not signed in")
	}
	if !strings.Contains(err.Error(), "not signed in") {
		t.Errorf("expected 'not signed in' error, got: %v", err)
	}
}

// TestWhoamiIntegration_StaleTokenClearsStore tests that a rejected stored
// token is cleared rather than retried forever
func TestWhoamiIntegration_StaleTokenClearsStore(t *testing.T) {
	api := testAPI()
	store := credstore.NewMemory()
	if err := store.SaveTokens("stale-access", "stale-refresh"); err != nil {
		t.Fatal(err)
	}

	err := runWhoami("", WithAPIClient(api), WithTokenStore(store), WithServer(testServer()))
	if err == nil {
		t.Fatal("expected whoami to fail with a stale token")
	}

	if !store.Empty() {
		t.Error("expected stale tokens to be cleared")
	}
}
