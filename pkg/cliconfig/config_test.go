package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if s.ListenAddr != DefaultListenAddr {
		t.Errorf("listen_addr = %q", s.ListenAddr)
	}
	if s.Logging.Level != "info" || s.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", s.Logging)
	}
	if s.DataDir == "" {
		t.Error("data_dir empty")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := "listen_addr: \":7000\"\nsubscription_url: https://sub.example.com/c\nlogging:\n  level: debug\n  format: json\n"
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if s.ListenAddr != ":7000" {
		t.Errorf("listen_addr = %q", s.ListenAddr)
	}
	if s.SubscriptionURL != "https://sub.example.com/c" {
		t.Errorf("subscription_url = %q", s.SubscriptionURL)
	}
	if s.Logging.Level != "debug" || s.Logging.Format != "json" {
		t.Errorf("logging = %+v", s.Logging)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load(missing explicit file) succeeded")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CLASHDESK_LISTEN_ADDR", ":8123")
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if s.ListenAddr != ":8123" {
		t.Errorf("listen_addr = %q, want env override", s.ListenAddr)
	}
}
