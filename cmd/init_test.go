package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcus/possync/internal/db"
)

func TestInitCreatesWorkspace(t *testing.T) {
	dir := t.TempDir()

	database, err := db.Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer database.Close()

	if info, err := os.Stat(filepath.Join(dir, ".possync")); err != nil || !info.IsDir() {
		t.Errorf("expected .possync directory at %s", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, ".possync", "possync.db")); err != nil {
		t.Errorf("expected possync.db to exist: %v", err)
	}
}

func TestInitIdempotent(t *testing.T) {
	dir := t.TempDir()

	database1, err := db.Initialize(dir)
	if err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	database1.Close()

	database2, err := db.Initialize(dir)
	if err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	database2.Close()
}

func TestAddToGitignore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")

	if err := os.WriteFile(path, []byte("node_modules/"), 0644); err != nil {
		t.Fatal(err)
	}

	addToGitignore(path)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "node_modules/\n.possync/\n") {
		t.Errorf("unexpected .gitignore content: %q", content)
	}

	// Second call is a no-op.
	addToGitignore(path)
	again, _ := os.ReadFile(path)
	if string(again) != string(content) {
		t.Errorf(".gitignore changed on repeat call: %q", again)
	}
}
