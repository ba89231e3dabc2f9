// Package gcp builds the client options shared by the Google Cloud clients.
package gcp

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/surplus-backend/pkg/config"
)

// ClientOptions prefers inline credentials JSON, then a credentials file,
// and otherwise falls back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.ApplicationCredentials)}
	default:
		return nil
	}
}

// ServiceAccount is the subset of a key file needed for local URL signing.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// LoadServiceAccount returns the service account behind the configured
// credentials, or nil when running on default credentials.
func LoadServiceAccount(cfg config.GCPConfig) (*ServiceAccount, error) {
	raw := strings.TrimSpace(cfg.CredentialsJSON)
	if raw == "" && strings.TrimSpace(cfg.ApplicationCredentials) != "" {
		data, err := os.ReadFile(cfg.ApplicationCredentials)
		if err != nil {
			return nil, err
		}
		raw = string(data)
	}
	if raw == "" {
		return nil, nil
	}
	var sa ServiceAccount
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return nil, err
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("credentials are not a service account key")
	}
	return &sa, nil
}
