package launchpad

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCredentials = `[1]
consumer_key = rockcraft
consumer_secret =
access_token = AbCdEf
access_secret = s3cr3t
`

func TestParseCredentials(t *testing.T) {
	creds, err := ParseCredentials([]byte(sampleCredentials))
	if err != nil {
		t.Fatalf("ParseCredentials() error = %v", err)
	}

	want := Credentials{ConsumerKey: "rockcraft", AccessToken: "AbCdEf", AccessSecret: "s3cr3t"}
	if *creds != want {
		t.Errorf("ParseCredentials() = %+v, want %+v", *creds, want)
	}
}

func TestParseCredentials_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"no section", "consumer_key = x\n", "no [1] section"},
		{"missing token", "[1]\nconsumer_key = x\naccess_secret = y\n", "access_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCredentials([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseCredentials() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lp-creds")
	if err := os.WriteFile(path, []byte(sampleCredentials), 0o600); err != nil {
		t.Fatal(err)
	}
	b64 := base64.StdEncoding.EncodeToString([]byte(sampleCredentials))

	fromFile, err := LoadCredentials("", path)
	if err != nil {
		t.Fatalf("LoadCredentials(file) error = %v", err)
	}
	fromB64, err := LoadCredentials(b64+"\n", "")
	if err != nil {
		t.Fatalf("LoadCredentials(b64) error = %v", err)
	}
	if *fromFile != *fromB64 {
		t.Errorf("file and base64 credentials differ: %+v vs %+v", fromFile, fromB64)
	}

	if _, err := LoadCredentials(b64, path); err == nil {
		t.Error("LoadCredentials() with both sources should fail")
	}
	if _, err := LoadCredentials("", ""); err == nil {
		t.Error("LoadCredentials() with no source should fail")
	}
	if _, err := LoadCredentials("not base64!", ""); err == nil {
		t.Error("LoadCredentials() with invalid base64 should fail")
	}
}
