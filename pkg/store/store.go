// Package store exposes the public, path-addressed key-value façade: a
// mutable working tree backed by a content-addressed object database,
// with transactional commit and single-writer coordination.
package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/arnegrid/pathkv/pkg/config"
	"github.com/arnegrid/pathkv/pkg/object"
	"github.com/arnegrid/pathkv/pkg/payload"
	"github.com/arnegrid/pathkv/pkg/txn"
	"github.com/arnegrid/pathkv/pkg/worktree"
)

// Store is an opened repository: one branch's working tree, coordinated
// by a TransactionManager guarding that branch's head ref.
type Store struct {
	rootDir string
	gitDir  string
	branch  string

	db       *object.DB
	handlers *payload.Registry
	txMgr    *txn.Manager

	mu   sync.RWMutex
	head object.Hash
	wt   *worktree.WorkingTree
}

func headRefPath(gitDir, branch string) string {
	return filepath.Join(gitDir, "refs", "heads", branch)
}

func newStore(rootDir, gitDir, branch string) (*Store, error) {
	s := &Store{
		rootDir:  rootDir,
		gitDir:   gitDir,
		branch:   branch,
		db:       object.NewDB(gitDir),
		handlers: payload.NewRegistry(),
	}
	s.txMgr = txn.NewManager(headRefPath(gitDir, branch), txn.Hooks{
		Reload:     s.reload,
		ClearCache: s.db.Clear,
	})

	head, err := txn.ReadHeadRef(headRefPath(gitDir, branch))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := s.reload(head); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return s, nil
}

// reload discards the in-memory working tree and rebuilds it from head.
func (s *Store) reload(head object.Hash) error {
	wt, err := worktree.Load(s.db, s.handlers, rootTreeOf(s.db, head))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.head = head
	s.wt = wt
	s.mu.Unlock()
	return nil
}

// rootTreeOf returns the root tree ID of the commit at head, or the empty
// Hash if head is unset or unreadable (the latter only happens on a
// corrupt repository; reload's subsequent worktree.Load will then itself
// fail if the hash is bogus but non-empty).
func rootTreeOf(db *object.DB, head object.Hash) object.Hash {
	if head.Empty() {
		return ""
	}
	c, err := db.GetCommit(head)
	if err != nil {
		return ""
	}
	return c.Tree
}

// RootDir is the directory the repository was opened against.
func (s *Store) RootDir() string { return s.rootDir }

// GitDir is the repository's object/ref directory.
func (s *Store) GitDir() string { return s.gitDir }

// Branch is the branch this Store is bound to.
func (s *Store) Branch() string { return s.branch }

// Head returns the in-memory head commit ID.
func (s *Store) Head() object.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// Get returns the decoded value stored at path, or ok=false if absent.
func (s *Store) Get(path string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wt.Get(path)
}

// Set stores value at path within the current transaction's working tree.
// Must be called from within a Transaction callback.
func (s *Store) Set(path string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wt.Set(path, value)
}

// Delete removes the value at path. Must be called from within a
// Transaction callback.
func (s *Store) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wt.Delete(path)
}

// Paths returns every leaf path currently in the working tree.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wt.Paths()
}

// Config reads this repository's identity/remotes configuration.
func (s *Store) Config() (*config.Config, error) {
	return config.Read(s.gitDir)
}

// Changed reports whether the on-disk head ref differs from the
// in-memory head.
func (s *Store) Changed() (bool, error) {
	disk, err := txn.ReadHeadRef(headRefPath(s.gitDir, s.branch))
	if err != nil {
		return false, fmt.Errorf("changed: %w", err)
	}
	return disk != s.Head(), nil
}

// Refresh reloads the working tree from disk iff the head ref has moved.
func (s *Store) Refresh() error {
	changed, err := s.Changed()
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	disk, err := txn.ReadHeadRef(headRefPath(s.gitDir, s.branch))
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return s.reload(disk)
}
