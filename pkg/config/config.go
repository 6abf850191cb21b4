// Package config reads and writes a repository's local configuration:
// committer identity and named remotes, stored as TOML.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const fileName = "config.toml"

// Identity names the author/committer attribution used for new commits.
type Identity struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// Config is the full on-disk schema: identity plus named remotes.
type Config struct {
	Identity Identity          `toml:"identity"`
	Remotes  map[string]string `toml:"remotes"`
}

func path(storeDir string) string {
	return filepath.Join(storeDir, fileName)
}

// Read loads config.toml from storeDir. A missing file yields a Config
// whose identity comes from DefaultIdentity (the OS user name, else $USER)
// and an empty remotes map, not an error.
func Read(storeDir string) (*Config, error) {
	data, err := os.ReadFile(path(storeDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Identity: DefaultIdentity(), Remotes: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("read config: decode: %w", err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	if cfg.Identity.Name == "" && cfg.Identity.Email == "" {
		cfg.Identity = DefaultIdentity()
	}
	return &cfg, nil
}

// Write atomically writes cfg to storeDir/config.toml.
func Write(storeDir string, cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}

	tmp, err := os.CreateTemp(storeDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, path(storeDir)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// SetRemote stores/updates a named remote URL.
func SetRemote(storeDir, name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("set remote: remote name is required")
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return fmt.Errorf("set remote: remote URL is required")
	}

	cfg, err := Read(storeDir)
	if err != nil {
		return err
	}
	cfg.Remotes[name] = remoteURL
	return Write(storeDir, cfg)
}

// RemoteURL returns the configured URL for the given remote name.
func RemoteURL(storeDir, name string) (string, error) {
	cfg, err := Read(storeDir)
	if err != nil {
		return "", err
	}
	url, ok := cfg.Remotes[name]
	if !ok || strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("remote %q is not configured", name)
	}
	return url, nil
}

// DefaultIdentity falls back to the OS user when no identity is configured.
func DefaultIdentity() Identity {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return Identity{Name: u.Username}
	}
	if name := os.Getenv("USER"); name != "" {
		return Identity{Name: name}
	}
	return Identity{}
}
