// Package worktree implements a mutable, in-memory nested overlay over a
// persistent object.Tree, mirroring the shape of a path-addressed store's
// write-then-commit workflow without checking anything out to disk.
package worktree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arnegrid/pathkv/pkg/object"
	"github.com/arnegrid/pathkv/pkg/payload"
)

// node is either a leaf or a subtree. hash caches the last-written
// blob/tree ID; it is valid exactly when dirty is false.
type node struct {
	isDir bool
	dirty bool
	hash  object.Hash

	// leaf state: either hasValue (a value Set by the caller, not yet
	// encoded) or raw (bytes read back from a loaded Blob, already in
	// their on-disk encoded form).
	hasValue bool
	value    interface{}
	raw      []byte
	path     string // path used for handler dispatch: the full path for Set values, the entry name for loaded leaves

	// directory state
	children map[string]*node
	order    []string // insertion order of children names, re-sorted on write
}

func newDirNode() *node {
	return &node{isDir: true, children: make(map[string]*node)}
}

// WorkingTree is the root of a nested overlay. All operations are
// path-addressed with "/"-separated components.
type WorkingTree struct {
	root     *node
	db       *object.DB
	handlers *payload.Registry
}

// New creates an empty overlay.
func New(db *object.DB, handlers *payload.Registry) *WorkingTree {
	return &WorkingTree{root: newDirNode(), db: db, handlers: handlers}
}

// Load populates the overlay by recursively reading an existing persistent
// tree, so a WorkingTree can be reloaded from a commit's root tree.
func Load(db *object.DB, handlers *payload.Registry, rootTree object.Hash) (*WorkingTree, error) {
	wt := New(db, handlers)
	if rootTree.Empty() {
		return wt, nil
	}
	n, err := loadNode(db, rootTree)
	if err != nil {
		return nil, fmt.Errorf("load working tree: %w", err)
	}
	wt.root = n
	return wt, nil
}

func loadNode(db *object.DB, treeHash object.Hash) (*node, error) {
	tree, err := db.GetTree(treeHash)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", treeHash, err)
	}
	n := newDirNode()
	n.hash = treeHash
	for _, entry := range tree.Entries {
		if entry.IsDir() {
			child, err := loadNode(db, entry.Target)
			if err != nil {
				return nil, err
			}
			n.children[entry.Name] = child
			n.order = append(n.order, entry.Name)
			continue
		}
		blob, err := db.GetBlob(entry.Target)
		if err != nil {
			return nil, fmt.Errorf("load blob %s: %w", entry.Target, err)
		}
		n.children[entry.Name] = &node{path: entry.Name, raw: blob.Data, hash: entry.Target}
		n.order = append(n.order, entry.Name)
	}
	return n, nil
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// Get splits path on "/" and descends through nested trees, returning the
// decoded payload at the leaf, or ok=false if any component is absent.
func (wt *WorkingTree) Get(path string) (interface{}, bool) {
	parts := splitPath(path)
	cur := wt.root
	for i, part := range parts {
		child, ok := cur.children[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			if child.isDir {
				return nil, false
			}
			return decodeLeaf(wt.handlers, child)
		}
		if !child.isDir {
			return nil, false
		}
		cur = child
	}
	return nil, false
}

func decodeLeaf(handlers *payload.Registry, n *node) (interface{}, bool) {
	if n.hasValue {
		return n.value, true
	}
	v, err := handlers.Decode(n.path, n.raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Set creates intermediate subtrees as needed, stores value at the leaf,
// remembers its full path (so Write chooses a consistent handler), and
// marks the node and every ancestor dirty.
func (wt *WorkingTree) Set(path string, value interface{}) {
	parts := splitPath(path)
	cur := wt.root
	cur.dirty = true
	for i, part := range parts {
		if i == len(parts)-1 {
			leaf, ok := cur.children[part]
			if !ok {
				leaf = &node{}
				cur.children[part] = leaf
				cur.order = append(cur.order, part)
			}
			leaf.isDir = false
			leaf.hasValue = true
			leaf.value = value
			leaf.raw = nil
			leaf.path = path
			leaf.dirty = true
			return
		}
		child, ok := cur.children[part]
		if !ok || !child.isDir {
			child = newDirNode()
			cur.children[part] = child
			if !ok {
				cur.order = append(cur.order, part)
			}
		}
		child.dirty = true
		cur = child
	}
}

// Delete removes the leaf at path. If its parent becomes empty, the parent
// is removed recursively up to (but not including) the root.
func (wt *WorkingTree) Delete(path string) {
	parts := splitPath(path)
	wt.deleteAt(wt.root, parts)
}

func (wt *WorkingTree) deleteAt(cur *node, parts []string) bool {
	if len(parts) == 0 {
		return false
	}
	name := parts[0]
	child, ok := cur.children[name]
	if !ok {
		return false
	}

	if len(parts) == 1 {
		delete(cur.children, name)
		removeOrder(cur, name)
		cur.dirty = true
		return len(cur.children) == 0
	}

	if !child.isDir {
		return false
	}
	emptied := wt.deleteAt(child, parts[1:])
	cur.dirty = true
	if emptied {
		delete(cur.children, name)
		removeOrder(cur, name)
		return len(cur.children) == 0
	}
	return false
}

func removeOrder(n *node, name string) {
	for i, existing := range n.order {
		if existing == name {
			n.order = append(n.order[:i], n.order[i+1:]...)
			return
		}
	}
}

// Tree ensures a nested WorkingTree exists at path and returns a handle to
// it. Intermediate directories are created as needed.
func (wt *WorkingTree) Tree(path string) *WorkingTree {
	parts := splitPath(path)
	cur := wt.root
	for _, part := range parts {
		child, ok := cur.children[part]
		if !ok || !child.isDir {
			child = newDirNode()
			cur.children[part] = child
			if !ok {
				cur.order = append(cur.order, part)
			}
		}
		cur = child
	}
	return &WorkingTree{root: cur, db: wt.db, handlers: wt.handlers}
}

// Each performs a canonical (name-sorted at every level) depth-first
// traversal, invoking fn for every leaf.
func (wt *WorkingTree) Each(fn func(path string, value interface{})) {
	walk(wt.root, "", wt.handlers, fn)
}

func walk(n *node, prefix string, handlers *payload.Registry, fn func(string, interface{})) {
	names := make([]string, len(n.order))
	copy(names, n.order)
	sort.Strings(names)

	for _, name := range names {
		child := n.children[name]
		full := name
		if prefix != "" {
			full = prefix + "/" + name
		}
		if child.isDir {
			walk(child, full, handlers, fn)
			continue
		}
		if v, ok := decodeLeaf(handlers, child); ok {
			fn(full, v)
		}
	}
}

// Paths returns every leaf path in canonical order.
func (wt *WorkingTree) Paths() []string {
	var out []string
	wt.Each(func(path string, _ interface{}) { out = append(out, path) })
	return out
}

// Values returns every leaf value in canonical path order.
func (wt *WorkingTree) Values() []interface{} {
	var out []interface{}
	wt.Each(func(_ string, value interface{}) { out = append(out, value) })
	return out
}

// ToMapping flattens the tree into a path -> value map.
func (wt *WorkingTree) ToMapping() map[string]interface{} {
	out := make(map[string]interface{})
	wt.Each(func(path string, value interface{}) { out[path] = value })
	return out
}

// Write serializes every dirty node bottom-up: leaves through their
// PayloadHandler into Blob objects, directories into canonically sorted
// Tree objects, writing each through the ObjectDB and clearing dirty
// flags as it goes. Nodes that are not dirty contribute their
// already-known hash untouched. It returns the ID of the root tree.
func (wt *WorkingTree) Write() (object.Hash, error) {
	return writeNode(wt.root, wt.db, wt.handlers)
}

func writeNode(n *node, db *object.DB, handlers *payload.Registry) (object.Hash, error) {
	if !n.dirty && !n.hash.Empty() {
		return n.hash, nil
	}

	if !n.isDir {
		raw, err := encodeLeaf(handlers, n)
		if err != nil {
			return "", fmt.Errorf("write leaf %s: %w", n.path, err)
		}
		id, err := db.PutBlob(&object.Blob{Data: raw})
		if err != nil {
			return "", fmt.Errorf("write leaf %s: %w", n.path, err)
		}
		n.hash = id
		n.dirty = false
		return id, nil
	}

	names := make([]string, len(n.order))
	copy(names, n.order)
	sort.Strings(names)

	entries := make([]object.TreeEntry, 0, len(names))
	for _, name := range names {
		child := n.children[name]
		childHash, err := writeNode(child, db, handlers)
		if err != nil {
			return "", err
		}
		mode := object.ModeFile
		if child.isDir {
			mode = object.ModeDir
		}
		entries = append(entries, object.TreeEntry{Mode: mode, Name: name, Target: childHash})
	}

	id, err := db.PutTree(&object.Tree{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree: %w", err)
	}
	n.hash = id
	n.dirty = false
	return id, nil
}

func encodeLeaf(handlers *payload.Registry, n *node) ([]byte, error) {
	if n.hasValue {
		return handlers.Encode(n.path, n.value)
	}
	return n.raw, nil
}
