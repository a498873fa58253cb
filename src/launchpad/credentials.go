package launchpad

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// credentialsSection is the section launchpadlib writes credentials under.
const credentialsSection = "1"

// Credentials are OAuth 1.0 access credentials as stored by launchpadlib.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// ParseCredentials parses a launchpadlib credentials file:
//
//	[1]
//	consumer_key = rockcraft
//	consumer_secret =
//	access_token = ...
//	access_secret = ...
func ParseCredentials(data []byte) (*Credentials, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	section, err := cfg.GetSection(credentialsSection)
	if err != nil {
		return nil, fmt.Errorf("credentials have no [%s] section", credentialsSection)
	}

	creds := &Credentials{
		ConsumerKey:    section.Key("consumer_key").String(),
		ConsumerSecret: section.Key("consumer_secret").String(),
		AccessToken:    section.Key("access_token").String(),
		AccessSecret:   section.Key("access_secret").String(),
	}

	var missing []string
	if creds.ConsumerKey == "" {
		missing = append(missing, "consumer_key")
	}
	if creds.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if creds.AccessSecret == "" {
		missing = append(missing, "access_secret")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("credentials missing %s", strings.Join(missing, ", "))
	}

	return creds, nil
}

// LoadCredentials reads credentials from either a base64 encoded string or a
// file path. Exactly one of the two must be set.
func LoadCredentials(b64, path string) (*Credentials, error) {
	switch {
	case b64 != "" && path != "":
		return nil, fmt.Errorf("credentials given both inline and as a file")
	case b64 != "":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 credentials: %w", err)
		}
		return ParseCredentials(data)
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return ParseCredentials(data)
	default:
		return nil, fmt.Errorf("no Launchpad credentials given")
	}
}
