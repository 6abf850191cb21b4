package config

import (
	"testing"
)

func TestReadMissingReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg.Remotes == nil {
		t.Errorf("Remotes is nil, want empty map")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Identity: Identity{Name: "ada", Email: "ada@example.com"},
		Remotes:  map[string]string{"origin": "https://example.com/repo"},
	}
	if err := Write(dir, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Identity != cfg.Identity {
		t.Errorf("Identity = %+v, want %+v", got.Identity, cfg.Identity)
	}
	if got.Remotes["origin"] != "https://example.com/repo" {
		t.Errorf("Remotes[origin] = %q, want https://example.com/repo", got.Remotes["origin"])
	}
}

func TestSetRemoteAndRemoteURL(t *testing.T) {
	dir := t.TempDir()
	if err := SetRemote(dir, "origin", "https://example.com/a"); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	url, err := RemoteURL(dir, "origin")
	if err != nil {
		t.Fatalf("RemoteURL: %v", err)
	}
	if url != "https://example.com/a" {
		t.Errorf("RemoteURL = %q, want https://example.com/a", url)
	}

	if _, err := RemoteURL(dir, "missing"); err == nil {
		t.Errorf("RemoteURL(missing) = nil error, want error")
	}
}

func TestSetRemoteRejectsEmptyName(t *testing.T) {
	dir := t.TempDir()
	if err := SetRemote(dir, "  ", "https://example.com"); err == nil {
		t.Errorf("SetRemote with blank name = nil error, want error")
	}
}
