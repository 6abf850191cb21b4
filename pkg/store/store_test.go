package store

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func newTestRepo(t *testing.T) *Store {
	t.Helper()
	s, err := Init(t.TempDir(), "main", false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestEmptyToOneKey(t *testing.T) {
	s := newTestRepo(t)

	err := s.Transaction("init", func(s *Store) error {
		s.Set("a.yml", map[string]interface{}{"x": 1})
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}

	if _, err := os.Stat(headRefPath(s.gitDir, "main")); err != nil {
		t.Errorf("head ref missing: %v", err)
	}

	commits, err := s.Commits(10, "")
	if err != nil {
		t.Fatalf("Commits: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("Commits count = %d, want 1", len(commits))
	}

	v, ok := s.Get("a.yml")
	if !ok {
		t.Fatalf("Get(a.yml) not found")
	}
	m, ok := v.(map[string]interface{})
	if !ok || m["x"] != 1 {
		t.Errorf("Get(a.yml) = %v, want map[x:1]", v)
	}
}

func TestNestedPaths(t *testing.T) {
	s := newTestRepo(t)

	err := s.Transaction("nest", func(s *Store) error {
		s.Set("dir/sub/b.yml", []int{1, 2, 3})
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}

	paths := s.Paths()
	if len(paths) != 1 || paths[0] != "dir/sub/b.yml" {
		t.Errorf("Paths = %v, want [dir/sub/b.yml]", paths)
	}

	commit, err := s.db.GetCommit(s.Head())
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	tree, err := s.db.GetTree(commit.Tree)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree.Entries) != 1 || tree.Entries[0].Name != "dir" || !tree.Entries[0].IsDir() {
		t.Errorf("root tree entries = %+v, want single dir entry named dir", tree.Entries)
	}
}

func TestRollbackOnError(t *testing.T) {
	s := newTestRepo(t)

	if err := s.Transaction("seed", func(s *Store) error {
		s.Set("a.yml", 1)
		return nil
	}); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	headBefore := s.Head()

	boom := errors.New("boom")
	err := s.Transaction("mutate", func(s *Store) error {
		s.Set("a.yml", 2)
		return boom
	})
	if err == nil {
		t.Fatalf("Transaction did not return an error")
	}

	v, ok := s.Get("a.yml")
	if !ok || v != 1 {
		t.Errorf("Get(a.yml) after rollback = %v, want 1", v)
	}
	if s.Head() != headBefore {
		t.Errorf("head changed after rollback: %s != %s", s.Head(), headBefore)
	}
}

func TestDeleteCollapse(t *testing.T) {
	s := newTestRepo(t)

	if err := s.Transaction("seed", func(s *Store) error {
		s.Set("x/y.yml", true)
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.Transaction("delete", func(s *Store) error {
		s.Delete("x/y.yml")
		return nil
	}); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}

	if paths := s.Paths(); len(paths) != 0 {
		t.Errorf("Paths = %v, want empty", paths)
	}

	commit, err := s.db.GetCommit(s.Head())
	if err != nil {
		t.Fatalf("GetCommit: %v", err)
	}
	tree, err := s.db.GetTree(commit.Tree)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree.Entries) != 0 {
		t.Errorf("root tree entries = %+v, want empty", tree.Entries)
	}
}

func TestHistoryOrderAndParentChain(t *testing.T) {
	s := newTestRepo(t)

	var headAfter [3]string
	for i := 1; i <= 3; i++ {
		n := i
		if err := s.Transaction(fmt.Sprintf("k/%d", n), func(s *Store) error {
			s.Set("k.yml", n)
			return nil
		}); err != nil {
			t.Fatalf("transaction %d: %v", n, err)
		}
		headAfter[i-1] = string(s.Head())
	}

	commits, err := s.Commits(10, "")
	if err != nil {
		t.Fatalf("Commits: %v", err)
	}
	if len(commits) != 3 {
		t.Fatalf("Commits count = %d, want 3", len(commits))
	}
	if commits[0].Message != "k/3" || commits[1].Message != "k/2" || commits[2].Message != "k/1" {
		t.Errorf("commit order = [%s %s %s], want [k/3 k/2 k/1]",
			commits[0].Message, commits[1].Message, commits[2].Message)
	}

	if string(commits[0].Parents[0]) != headAfter[1] {
		t.Errorf("newest commit's parent = %s, want %s", commits[0].Parents[0], headAfter[1])
	}
	if string(commits[1].Parents[0]) != headAfter[0] {
		t.Errorf("middle commit's parent = %s, want %s", commits[1].Parents[0], headAfter[0])
	}
	if len(commits[2].Parents) != 0 {
		t.Errorf("first commit has parents %v, want none", commits[2].Parents)
	}
}
