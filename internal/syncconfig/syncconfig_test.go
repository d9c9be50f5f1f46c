package syncconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestConfig creates a temp HOME with ~/.config/possync/config.json.
func writeTestConfig(t *testing.T, cfg *Config) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	dir := filepath.Join(tmpDir, ".config", "possync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestGetPOSURL_Default(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	os.Unsetenv("POSSYNC_URL")

	if got := GetPOSURL(); got != defaultPOSURL {
		t.Fatalf("default URL: got %q, want %q", got, defaultPOSURL)
	}
}

func TestGetPOSURL_EnvOverridesConfig(t *testing.T) {
	writeTestConfig(t, &Config{POS: POSConfig{URL: "https://pos.example.com"}})
	t.Setenv("POSSYNC_URL", "https://sandbox.example.com")

	if got := GetPOSURL(); got != "https://sandbox.example.com" {
		t.Fatalf("env override: got %q", got)
	}
}

func TestGetPOSURL_AuthBeatsConfig(t *testing.T) {
	writeTestConfig(t, &Config{POS: POSConfig{URL: "https://pos.example.com"}})
	os.Unsetenv("POSSYNC_URL")

	if err := SaveAuth(&AuthCredentials{AccessToken: "tok-1", POSURL: "https://connected.example.com"}); err != nil {
		t.Fatalf("SaveAuth failed: %v", err)
	}

	if got := GetPOSURL(); got != "https://connected.example.com" {
		t.Fatalf("auth URL: got %q", got)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	os.Unsetenv("POSSYNC_TOKEN")

	if IsConnected() {
		t.Fatal("fresh HOME should not be connected")
	}

	if err := SaveAuth(&AuthCredentials{AccessToken: "tok-1", MerchantID: "M1", POSURL: "https://pos.example.com"}); err != nil {
		t.Fatalf("SaveAuth failed: %v", err)
	}

	creds, err := LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth failed: %v", err)
	}
	if creds == nil || creds.AccessToken != "tok-1" || creds.MerchantID != "M1" {
		t.Fatalf("creds = %+v", creds)
	}
	if creds.ConnectedAt == "" {
		t.Error("ConnectedAt not stamped on save")
	}
	if !IsConnected() {
		t.Error("IsConnected should be true after SaveAuth")
	}

	if err := ClearAuth(); err != nil {
		t.Fatalf("ClearAuth failed: %v", err)
	}
	if IsConnected() {
		t.Error("IsConnected should be false after ClearAuth")
	}
	// Clearing twice is fine.
	if err := ClearAuth(); err != nil {
		t.Fatalf("second ClearAuth failed: %v", err)
	}
}

func TestGetTenantID(t *testing.T) {
	writeTestConfig(t, &Config{Tenant: "tenant-42"})
	os.Unsetenv("POSSYNC_TENANT")

	if got := GetTenantID(); got != "tenant-42" {
		t.Fatalf("tenant from config: got %q", got)
	}

	t.Setenv("POSSYNC_TENANT", "tenant-env")
	if got := GetTenantID(); got != "tenant-env" {
		t.Fatalf("tenant from env: got %q", got)
	}
}

func TestGetOrdersWindow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	os.Unsetenv("POSSYNC_ORDERS_WINDOW")

	if got := GetOrdersWindow(); got != 24*time.Hour {
		t.Fatalf("default window: got %v, want 24h", got)
	}

	t.Setenv("POSSYNC_ORDERS_WINDOW", "72h")
	if got := GetOrdersWindow(); got != 72*time.Hour {
		t.Fatalf("env window: got %v, want 72h", got)
	}

	t.Setenv("POSSYNC_ORDERS_WINDOW", "not-a-duration")
	if got := GetOrdersWindow(); got != 24*time.Hour {
		t.Fatalf("invalid env window: got %v, want 24h default", got)
	}
}

func TestGetAutoSyncEnabled(t *testing.T) {
	f := false
	writeTestConfig(t, &Config{POS: POSConfig{Auto: AutoSyncConfig{Enabled: &f}}})
	os.Unsetenv("POSSYNC_AUTO")

	if GetAutoSyncEnabled() {
		t.Fatal("config disabled auto-sync")
	}

	t.Setenv("POSSYNC_AUTO", "true")
	if !GetAutoSyncEnabled() {
		t.Fatal("env should override config")
	}
}
