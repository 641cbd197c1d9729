package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testClientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
	`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
	`"redirect_uris":["http://localhost"]}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testClientJSON), "http://localhost:8085/callback")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" || cfg.RedirectURL != "http://localhost:8085/callback" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	url := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline)
	if !strings.Contains(url, "access_type=offline") || !strings.Contains(url, "spreadsheets") {
		t.Errorf("auth url = %s", url)
	}

	if _, err := OAuthConfig([]byte("invalid-json"), ""); err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got %v", err)
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	if err := SaveToken(path, tok); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.RefreshToken != "refresh" || !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("loaded token = %+v", got)
	}
}

func TestLoadToken_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte(`nope`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, path, want string
	}{
		{"missing", filepath.Join(dir, "missing.json"), "read oauth token"},
		{"garbage", garbage, "decode oauth token"},
		{"empty", empty, "neither access nor refresh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadToken(tt.path); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestNew_OAuthMissingToken(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:   "sheet",
		CredentialsJSON: testClientJSON,
		OAuthTokenFile:  filepath.Join(t.TempDir(), "missing.json"),
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "read oauth token") {
		t.Fatalf("expected token error, got %v", err)
	}
}
