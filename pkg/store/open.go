package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Open validates the repository layout and opens a Store bound to branch.
// path must exist; for a non-bare repository, path/.git must also exist.
// For a bare repository, path itself is treated as the git directory.
func Open(path, branch string, bare bool) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open: %w: %v", ErrRepositoryMissing, err)
	}

	gitDir := path
	if !bare {
		gitDir = filepath.Join(path, ".git")
		if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("open: %w: %s", ErrRepositoryMissing, gitDir)
		}
	}

	return newStore(path, gitDir, branch)
}

// Init creates a new repository at path and opens it on branch. It fails
// if the git directory already exists (path/.git, or path itself when
// bare, even if it is an empty directory). bare controls whether path
// itself is the git directory (true) or path/.git is created (false).
func Init(path, branch string, bare bool) (*Store, error) {
	gitDir := path
	if !bare {
		gitDir = filepath.Join(path, ".git")
	}

	if _, err := os.Stat(gitDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", gitDir)
	}

	dirs := []string{
		filepath.Join(gitDir, "objects", "pack"),
		filepath.Join(gitDir, "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	return newStore(path, gitDir, branch)
}
