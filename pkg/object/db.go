package object

import (
	"fmt"
	"sync"
)

// cachedObject pairs a decoded value with the kind it was decoded as.
type cachedObject struct {
	kind  Kind
	value interface{}
}

// DB is the unified, cached accessor over loose and packed storage. Get
// consults the in-memory cache first, then LooseStore, then PackStore;
// Put always writes loose (this spec never writes packs implicitly — see
// Store.Pack for the explicit, user-invoked repacking operation).
type DB struct {
	loose *LooseStore
	packs *PackStore

	mu    sync.RWMutex
	cache map[Hash]cachedObject
}

// NewDB creates a DB rooted at root (the directory containing "objects").
func NewDB(root string) *DB {
	return &DB{
		loose: NewLooseStore(root),
		packs: NewPackStore(root),
		cache: make(map[Hash]cachedObject),
	}
}

// Clear drops the in-memory cache. Used on transaction rollback, per
// spec's invariant that cached objects are immutable once written but
// rollback must not keep stale best-effort reads around either.
func (db *DB) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.cache = make(map[Hash]cachedObject)
}

// Get returns the cached decoded object if present; otherwise reads raw
// bytes (loose, then packs), decodes, caches, and returns.
func (db *DB) Get(h Hash) (Kind, interface{}, error) {
	db.mu.RLock()
	if co, ok := db.cache[h]; ok {
		db.mu.RUnlock()
		return co.kind, co.value, nil
	}
	db.mu.RUnlock()

	kind, raw, err := db.readRaw(h, 0)
	if err != nil {
		return "", nil, err
	}
	value, err := Decode(kind, raw)
	if err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", h, err)
	}

	db.mu.Lock()
	db.cache[h] = cachedObject{kind: kind, value: value}
	db.mu.Unlock()
	return kind, value, nil
}

// readRaw fetches undecoded envelope bytes for h, trying loose storage
// first and packs second. depth tracks recursive ref-delta resolution
// depth when called back into from the PackStore resolver.
func (db *DB) readRaw(h Hash, depth int) (Kind, []byte, error) {
	kind, data, err := db.loose.Read(h)
	if err == nil {
		return kind, data, nil
	}
	if depth > maxDeltaDepth {
		return "", nil, fmt.Errorf("%w: depth %d", ErrDeltaLoop, depth)
	}

	resolveRef := func(baseHash Hash, d int) (Kind, []byte, error) {
		return db.readRaw(baseHash, d)
	}
	kind, data, packErr := db.packs.Read(h, resolveRef)
	if packErr == nil {
		return kind, data, nil
	}
	return "", nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
}

// Put encodes v under kind, writes it to loose storage, caches the
// decoded value, and returns its ID. Writing an object whose ID already
// exists on disk is a silent no-op (idempotent), per spec §7.
func (db *DB) Put(kind Kind, v interface{}) (Hash, error) {
	data, err := Encode(kind, v)
	if err != nil {
		return "", err
	}
	id, err := db.loose.Write(kind, data)
	if err != nil {
		return "", err
	}
	db.mu.Lock()
	db.cache[id] = cachedObject{kind: kind, value: v}
	db.mu.Unlock()
	return id, nil
}

// PutBlob is a typed convenience wrapper around Put.
func (db *DB) PutBlob(b *Blob) (Hash, error) { return db.Put(KindBlob, b) }

// PutTree is a typed convenience wrapper around Put.
func (db *DB) PutTree(t *Tree) (Hash, error) { return db.Put(KindTree, t) }

// PutCommit is a typed convenience wrapper around Put.
func (db *DB) PutCommit(c *Commit) (Hash, error) { return db.Put(KindCommit, c) }

// PutTag is a typed convenience wrapper around Put.
func (db *DB) PutTag(t *Tag) (Hash, error) { return db.Put(KindTag, t) }

// GetBlob fetches and type-asserts a Blob.
func (db *DB) GetBlob(h Hash) (*Blob, error) { return getTyped[*Blob](db, h, KindBlob) }

// GetTree fetches and type-asserts a Tree.
func (db *DB) GetTree(h Hash) (*Tree, error) { return getTyped[*Tree](db, h, KindTree) }

// GetCommit fetches and type-asserts a Commit.
func (db *DB) GetCommit(h Hash) (*Commit, error) { return getTyped[*Commit](db, h, KindCommit) }

// GetTag fetches and type-asserts a Tag.
func (db *DB) GetTag(h Hash) (*Tag, error) { return getTyped[*Tag](db, h, KindTag) }

func getTyped[T any](db *DB, h Hash, want Kind) (T, error) {
	var zero T
	kind, v, err := db.Get(h)
	if err != nil {
		return zero, err
	}
	if kind != want {
		return zero, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, kind, want)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("object %s: unexpected decoded type %T", h, v)
	}
	return typed, nil
}

// Loose exposes the underlying LooseStore, e.g. for Store.Verify.
func (db *DB) Loose() *LooseStore { return db.loose }

// Packs exposes the underlying PackStore, e.g. for Store.Verify.
func (db *DB) Packs() *PackStore { return db.packs }
