// Package gcp holds settings shared by the Google Cloud clients.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// ClientOptions picks inline JSON credentials over a credentials file.
// With neither set the SDK falls back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
