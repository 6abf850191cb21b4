package txn

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/arnegrid/pathkv/pkg/object"
)

func TestBeginCommitEnd(t *testing.T) {
	refPath := filepath.Join(t.TempDir(), "refs", "heads", "main")
	mgr := NewManager(refPath, Hooks{})

	tx, err := mgr.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if mgr.State() != Writing {
		t.Errorf("state = %v, want Writing", mgr.State())
	}
	if !tx.OldHead().Empty() {
		t.Errorf("OldHead = %v, want empty", tx.OldHead())
	}

	const newHead = object.Hash("abc123")
	if err := tx.Commit(newHead); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if mgr.State() != Idle {
		t.Errorf("state after commit = %v, want Idle", mgr.State())
	}

	got, err := readHeadRef(refPath)
	if err != nil {
		t.Fatalf("readHeadRef: %v", err)
	}
	if got != newHead {
		t.Errorf("head ref = %q, want %q", got, newHead)
	}
}

func TestNestedTransactionRejected(t *testing.T) {
	refPath := filepath.Join(t.TempDir(), "refs", "heads", "main")
	mgr := NewManager(refPath, Hooks{})

	tx, err := mgr.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.End()

	if _, err := mgr.Begin(); !errors.Is(err, ErrNestedTransaction) {
		t.Errorf("nested Begin error = %v, want ErrNestedTransaction", err)
	}
}

func TestRollbackClearsCacheAndReloads(t *testing.T) {
	refPath := filepath.Join(t.TempDir(), "refs", "heads", "main")
	var cleared bool
	var reloadedWith object.Hash
	mgr := NewManager(refPath, Hooks{
		ClearCache: func() { cleared = true },
		Reload:     func(h object.Hash) error { reloadedWith = h; return nil },
	})

	tx, err := mgr.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if !cleared {
		t.Errorf("ClearCache hook was not invoked")
	}
	if !reloadedWith.Empty() {
		t.Errorf("Reload hook called with %v, want empty (no commits yet)", reloadedWith)
	}
	if mgr.State() != Idle {
		t.Errorf("state after rollback = %v, want Idle", mgr.State())
	}
}

func TestRunRollsBackOnError(t *testing.T) {
	refPath := filepath.Join(t.TempDir(), "refs", "heads", "main")
	mgr := NewManager(refPath, Hooks{})

	wantErr := errors.New("boom")
	err := mgr.Run(func(oldHead object.Hash) (object.Hash, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Run error = %v, want %v", err, wantErr)
	}
	if mgr.State() != Idle {
		t.Errorf("state after failed Run = %v, want Idle", mgr.State())
	}

	if _, statErr := readHeadRef(refPath); statErr != nil {
		t.Errorf("readHeadRef after rollback: %v", statErr)
	}
}

func TestRunCommitsOnSuccess(t *testing.T) {
	refPath := filepath.Join(t.TempDir(), "refs", "heads", "main")
	mgr := NewManager(refPath, Hooks{})

	err := mgr.Run(func(oldHead object.Hash) (object.Hash, error) {
		return object.Hash("deadbeef"), nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := readHeadRef(refPath)
	if err != nil {
		t.Fatalf("readHeadRef: %v", err)
	}
	if got != "deadbeef" {
		t.Errorf("head ref = %q, want deadbeef", got)
	}
}
