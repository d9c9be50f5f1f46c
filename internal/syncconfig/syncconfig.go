// Package syncconfig handles the machine-level configuration for possync:
// the POS connection settings and credentials stored under
// ~/.config/possync. Per-tenant sync behavior lives in the database; this
// package only knows how to reach the POS and which tenant this machine
// works on.
package syncconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotConnected means no POS credentials are available from the
// environment or the auth file.
var ErrNotConnected = errors.New("not connected to a POS endpoint; run 'possync connect'")

// AutoSyncConfig holds auto-sync defaults applied when a tenant has no
// configuration row yet.
type AutoSyncConfig struct {
	Enabled *bool  `json:"enabled,omitempty"` // nil = default true
	Orders  string `json:"orders,omitempty"`  // duration string, default "24h"
}

// POSConfig holds POS connection settings.
type POSConfig struct {
	URL  string         `json:"url"`
	Auto AutoSyncConfig `json:"auto"`
}

// Config is the global possync config stored at ~/.config/possync/config.json.
type Config struct {
	Tenant string    `json:"tenant"`
	POS    POSConfig `json:"pos"`
}

// AuthCredentials stores the POS access token at ~/.config/possync/auth.json.
type AuthCredentials struct {
	AccessToken string `json:"access_token"`
	MerchantID  string `json:"merchant_id,omitempty"`
	POSURL      string `json:"pos_url"`
	ConnectedAt string `json:"connected_at,omitempty"`
}

const defaultPOSURL = "http://localhost:8080"

// ConfigDir returns ~/.config/possync, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "possync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads the global config from ~/.config/possync/config.json.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config to ~/.config/possync/config.json.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// LoadAuth reads credentials from ~/.config/possync/auth.json.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes credentials to ~/.config/possync/auth.json (0600 perms).
func SaveAuth(creds *AuthCredentials) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if creds.ConnectedAt == "" {
		creds.ConnectedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "auth.json"), data, 0600)
}

// ClearAuth removes the auth.json file.
func ClearAuth() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetPOSURL returns the POS API base URL.
// Priority: POSSYNC_URL env > auth.json > config.json > default.
func GetPOSURL() string {
	if v := os.Getenv("POSSYNC_URL"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil && creds.POSURL != "" {
		return creds.POSURL
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.POS.URL != "" {
		return cfg.POS.URL
	}
	return defaultPOSURL
}

// GetAccessToken returns the POS access token.
// Priority: POSSYNC_TOKEN env > auth.json.
func GetAccessToken() string {
	if v := os.Getenv("POSSYNC_TOKEN"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.AccessToken
	}
	return ""
}

// IsConnected returns true if a POS access token is available.
func IsConnected() bool {
	return GetAccessToken() != ""
}

// GetTenantID returns the tenant this machine syncs for.
// Priority: POSSYNC_TENANT env > config.json.
func GetTenantID() string {
	if v := os.Getenv("POSSYNC_TENANT"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil {
		return cfg.Tenant
	}
	return ""
}

// GetAutoSyncEnabled returns the machine-level auto-sync default, used when
// a tenant has no configuration row.
// Priority: POSSYNC_AUTO env > config.json pos.auto.enabled > true.
func GetAutoSyncEnabled() bool {
	if v := parseBoolEnv("POSSYNC_AUTO"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.POS.Auto.Enabled != nil {
		return *cfg.POS.Auto.Enabled
	}
	return true
}

// GetOrdersWindow returns how far back order pulls reach by default.
// Priority: POSSYNC_ORDERS_WINDOW env > config.json pos.auto.orders > 24h.
func GetOrdersWindow() time.Duration {
	if v := os.Getenv("POSSYNC_ORDERS_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.POS.Auto.Orders != "" {
		if d, err := time.ParseDuration(cfg.POS.Auto.Orders); err == nil {
			return d
		}
	}
	return 24 * time.Hour
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	v = strings.ToLower(v)
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}
