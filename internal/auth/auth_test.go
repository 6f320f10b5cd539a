package auth

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCredentials(t *testing.T) {
	tests := []struct {
		name    string
		keyID   string
		secret  string
		wantErr bool
	}{
		{"valid", "PKTEST", "secret", false},
		{"trims spaces", "  PKTEST ", " secret\n", false},
		{"missing key", "", "secret", true},
		{"missing secret", "PKTEST", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := LoadCredentials(tt.keyID, tt.secret)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingCredentials) {
					t.Errorf("error = %v, want ErrMissingCredentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadCredentials() error = %v", err)
			}
			if creds.KeyID != "PKTEST" || creds.Secret != "secret" {
				t.Errorf("creds = %+v", creds)
			}
		})
	}
}

func TestFromEnv_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "TS_TEST_KEY=PKFROMFILE\nTS_TEST_SECRET=filesecret\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TS_TEST_KEY")
		os.Unsetenv("TS_TEST_SECRET")
	})

	creds, err := FromEnv("TS_TEST_KEY", "TS_TEST_SECRET", filepath.Join(dir, "missing.env"), path)
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if creds.KeyID != "PKFROMFILE" || creds.Secret != "filesecret" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestFromEnv_EnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	os.WriteFile(path, []byte("TS_TEST_KEY2=PKFROMFILE\nTS_TEST_SECRET2=filesecret\n"), 0600)

	t.Setenv("TS_TEST_KEY2", "PKFROMENV")
	t.Cleanup(func() { os.Unsetenv("TS_TEST_SECRET2") })

	creds, err := FromEnv("TS_TEST_KEY2", "TS_TEST_SECRET2", path)
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if creds.KeyID != "PKFROMENV" {
		t.Errorf("KeyID = %q, want environment value", creds.KeyID)
	}
}

func TestFromEnv_Missing(t *testing.T) {
	_, err := FromEnv("TS_TEST_UNSET_KEY", "TS_TEST_UNSET_SECRET")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("error = %v, want ErrMissingCredentials", err)
	}
}

func TestCredentials_Headers(t *testing.T) {
	creds := &Credentials{KeyID: "PKTEST", Secret: "secret"}
	h := creds.Headers()

	if got := h.Get(HeaderKeyID); got != "PKTEST" {
		t.Errorf("%s = %q, want PKTEST", HeaderKeyID, got)
	}
	if got := h.Get(HeaderSecret); got != "secret" {
		t.Errorf("%s = %q, want secret", HeaderSecret, got)
	}
}

func TestCredentials_LogValueMasksSecret(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("loaded", "creds", &Credentials{KeyID: "PKABCDEFG", Secret: "supersecretvalue"})

	out := buf.String()
	if strings.Contains(out, "supersecretvalue") {
		t.Errorf("log output leaks secret: %s", out)
	}
	if !strings.Contains(out, "PKAB*****") {
		t.Errorf("log output = %s, want masked key id", out)
	}
}

func TestMask(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"abcdef", "abcd**"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
