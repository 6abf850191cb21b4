package worktree

import (
	"testing"

	"github.com/arnegrid/pathkv/pkg/object"
	"github.com/arnegrid/pathkv/pkg/payload"
)

func newTestDB(t *testing.T) *object.DB {
	t.Helper()
	return object.NewDB(t.TempDir())
}

func TestSetGet(t *testing.T) {
	wt := New(newTestDB(t), payload.NewRegistry())
	wt.Set("a/b/c.bin", []byte("hello"))

	v, ok := wt.Get("a/b/c.bin")
	if !ok {
		t.Fatalf("Get: not found")
	}
	got, ok := v.([]byte)
	if !ok || string(got) != "hello" {
		t.Errorf("Get = %v, want hello", v)
	}

	if _, ok := wt.Get("a/b/missing"); ok {
		t.Errorf("Get(missing) = found, want not found")
	}
}

func TestDeleteCollapsesEmptyParents(t *testing.T) {
	wt := New(newTestDB(t), payload.NewRegistry())
	wt.Set("a/b/c.bin", []byte("x"))
	wt.Delete("a/b/c.bin")

	if _, ok := wt.Get("a/b/c.bin"); ok {
		t.Fatalf("leaf still present after delete")
	}
	if len(wt.root.children) != 0 {
		t.Errorf("empty parent directories were not collapsed: %v", wt.root.order)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	db := newTestDB(t)
	handlers := payload.NewRegistry()
	wt := New(db, handlers)

	wt.Set("notes/a.yml", map[string]interface{}{"k": "v"})
	wt.Set("data.bin", []byte("payload"))

	rootHash, err := wt.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rootHash.Empty() {
		t.Fatalf("Write returned empty root hash")
	}

	reloaded, err := Load(db, handlers, rootHash)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	v, ok := reloaded.Get("data.bin")
	if !ok {
		t.Fatalf("reloaded data.bin missing")
	}
	if string(v.([]byte)) != "payload" {
		t.Errorf("reloaded data.bin = %v, want payload", v)
	}

	nv, ok := reloaded.Get("notes/a.yml")
	if !ok {
		t.Fatalf("reloaded notes/a.yml missing")
	}
	m, ok := nv.(map[string]interface{})
	if !ok || m["k"] != "v" {
		t.Errorf("reloaded notes/a.yml = %v", nv)
	}
}

func TestEachCanonicalOrder(t *testing.T) {
	wt := New(newTestDB(t), payload.NewRegistry())
	wt.Set("b.bin", []byte("2"))
	wt.Set("a.bin", []byte("1"))
	wt.Set("c/z.bin", []byte("3"))

	paths := wt.Paths()
	want := []string{"a.bin", "b.bin", "c/z.bin"}
	if len(paths) != len(want) {
		t.Fatalf("Paths() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Paths()[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestUnchangedSubtreeReusesHash(t *testing.T) {
	db := newTestDB(t)
	handlers := payload.NewRegistry()
	wt := New(db, handlers)
	wt.Set("x/y.bin", []byte("1"))
	wt.Set("z.bin", []byte("2"))

	firstRoot, err := wt.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	reloaded, err := Load(db, handlers, firstRoot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reloaded.Set("z.bin", []byte("3"))
	xSubtree := reloaded.root.children["x"]
	xHashBefore := xSubtree.hash
	if xSubtree.dirty {
		t.Errorf("untouched subtree x was marked dirty")
	}

	secondRoot, err := reloaded.Write()
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if secondRoot == firstRoot {
		t.Errorf("root hash did not change after mutation")
	}
	if xSubtree.hash != xHashBefore {
		t.Errorf("untouched subtree x hash = %s, want reused %s", xSubtree.hash, xHashBefore)
	}
}
