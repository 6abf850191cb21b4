// Package txn enforces single-writer semantics and atomic head-ref
// movement via an advisory file lock plus a lock-then-rename write.
package txn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arnegrid/pathkv/pkg/object"
)

// ErrNestedTransaction is returned by Begin when a transaction is already
// open on this Manager.
var ErrNestedTransaction = errors.New("nested transaction")

// State is one step of the per-transaction state machine:
// Idle -> Locked -> Writing -> Committed -> Idle, or Writing -> RolledBack -> Idle.
// Begin holds Locked while acquiring the lock and returns in Writing.
type State int

const (
	Idle State = iota
	Locked
	Writing
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Locked:
		return "locked"
	case Writing:
		return "writing"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Hooks wires a Manager to the working-tree/object-db layer it protects.
// Reload and ClearCache may be nil if the caller has nothing to refresh.
type Hooks struct {
	// Reload discards any in-memory state derived from the old head and
	// rebuilds it from head (which may be the zero Hash for an empty repo).
	Reload func(head object.Hash) error
	// ClearCache drops the ObjectDB's decode cache.
	ClearCache func()
}

// Manager guards a single head ref file for single-writer access.
type Manager struct {
	refPath string
	hooks   Hooks

	mu    sync.Mutex
	state State
}

// NewManager creates a Manager guarding the head ref at refPath.
func NewManager(refPath string, hooks Hooks) *Manager {
	return &Manager{refPath: refPath, hooks: hooks, state: Idle}
}

// State reports the manager's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Txn is a single in-flight transaction.
type Txn struct {
	mgr      *Manager
	lockFile *os.File
	lockPath string
	oldHead  object.Hash
	ended    bool
}

// OldHead returns the head ref value observed at Begin.
func (t *Txn) OldHead() object.Hash { return t.oldHead }

// Begin opens (creating if necessary) "<head-ref>.lock", takes an
// exclusive advisory lock on it, and reloads the caller's in-memory state
// from the on-disk head ref. The Reload hook is called on every Begin,
// whether or not the head ref has moved since it was last loaded.
// Beginning while a transaction is already open on this Manager is an
// error (nested transactions are disallowed).
func (m *Manager) Begin() (*Txn, error) {
	m.mu.Lock()
	if m.state != Idle {
		m.mu.Unlock()
		return nil, ErrNestedTransaction
	}
	m.state = Locked
	m.mu.Unlock()

	lockPath := m.refPath + ".lock"
	if err := os.MkdirAll(filepath.Dir(m.refPath), 0o755); err != nil {
		m.setState(Idle)
		return nil, fmt.Errorf("begin: mkdir: %w", err)
	}
	lockFile, err := acquireLock(lockPath)
	if err != nil {
		m.setState(Idle)
		return nil, fmt.Errorf("begin: %w", err)
	}

	diskHead, err := readHeadRef(m.refPath)
	if err != nil {
		_ = releaseLock(lockFile, lockPath)
		m.setState(Idle)
		return nil, fmt.Errorf("begin: read head: %w", err)
	}
	if m.hooks.Reload != nil {
		if err := m.hooks.Reload(diskHead); err != nil {
			_ = releaseLock(lockFile, lockPath)
			m.setState(Idle)
			return nil, fmt.Errorf("begin: reload: %w", err)
		}
	}

	m.setState(Writing)
	return &Txn{mgr: m, lockFile: lockFile, lockPath: lockPath, oldHead: diskHead}, nil
}

// Commit atomically replaces the head ref file's contents with newHead.
// If that write fails, the transaction is rolled back and the lock released.
func (t *Txn) Commit(newHead object.Hash) error {
	if t.ended {
		return fmt.Errorf("commit: transaction already ended")
	}
	if err := writeHeadRef(t.mgr.refPath, newHead); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf("commit: %w (rollback also failed: %v)", err, rbErr)
		}
		return fmt.Errorf("commit: %w", err)
	}
	t.mgr.setState(Committed)
	return t.End()
}

// Rollback clears the ObjectDB cache, reloads from disk, then ends the
// transaction, releasing the lock.
func (t *Txn) Rollback() error {
	if t.ended {
		return fmt.Errorf("rollback: transaction already ended")
	}
	if t.mgr.hooks.ClearCache != nil {
		t.mgr.hooks.ClearCache()
	}
	diskHead, err := readHeadRef(t.mgr.refPath)
	if err == nil && t.mgr.hooks.Reload != nil {
		_ = t.mgr.hooks.Reload(diskHead)
	}
	t.mgr.setState(RolledBack)
	return t.End()
}

// End releases the lock and unlinks the lock file, returning the manager
// to Idle. Safe to call more than once.
func (t *Txn) End() error {
	if t.ended {
		return nil
	}
	t.ended = true
	err := releaseLock(t.lockFile, t.lockPath)
	t.mgr.setState(Idle)
	return err
}

// Run is the standard scoped acquisition: begin, run fn, commit on normal
// return, rollback on error, End guaranteed on every exit path. fn
// receives the old head and returns the new head to commit.
func (m *Manager) Run(fn func(oldHead object.Hash) (object.Hash, error)) error {
	t, err := m.Begin()
	if err != nil {
		return err
	}

	newHead, err := fn(t.oldHead)
	if err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return t.Commit(newHead)
}

// ReadHeadRef reads the head ref file at refPath, returning the empty
// Hash (not an error) if the file does not yet exist.
func ReadHeadRef(refPath string) (object.Hash, error) {
	return readHeadRef(refPath)
}

// WriteRef atomically writes h to refPath via a temp-file-then-rename,
// the same mechanism Commit uses to move the head ref. Exposed for refs
// outside the head-ref/lock lifecycle, e.g. refs/tags/<name>.
func WriteRef(refPath string, h object.Hash) error {
	return writeHeadRef(refPath, h)
}

func readHeadRef(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read head ref %q: %w", refPath, err)
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

func writeHeadRef(refPath string, h object.Hash) error {
	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write head ref: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".head-tmp-*")
	if err != nil {
		return fmt.Errorf("write head ref: tmpfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(string(h) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write head ref: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write head ref: close: %w", err)
	}
	if err := os.Rename(tmpName, refPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write head ref: rename: %w", err)
	}
	return nil
}
