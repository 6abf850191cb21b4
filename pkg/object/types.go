// Package object implements the content-addressed object database: the
// four object kinds, their canonical byte encodings, loose and packed
// storage, and a unified cached accessor.
package object

// Hash is a 40-character hex-encoded SHA-1 digest, textually identical to
// a standard git object ID.
type Hash string

// Empty reports whether h is the zero value.
func (h Hash) Empty() bool {
	return h == ""
}

// Kind identifies the kind of object stored.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
	KindTag    Kind = "tag"
)

// Tree entry modes, git-compatible octal mode strings.
const (
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
	ModeDir        = "40000"
)

// Blob holds an opaque byte payload.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a Tree, referencing a Blob or a nested Tree.
type TreeEntry struct {
	Mode   string // one of the Mode* constants
	Name   string // short path component; no "/" or NUL
	Target Hash
}

// IsDir reports whether the entry references a subtree.
func (e TreeEntry) IsDir() bool {
	return e.Mode == ModeDir
}

// Tree is an ordered set of TreeEntry, canonically sorted by Name (with
// directory names sorted as if suffixed by "/").
type Tree struct {
	Entries []TreeEntry
}

// Identity is an author/committer/tagger attribution.
type Identity struct {
	Name      string
	Email     string
	Timestamp int64  // unix seconds
	TZOffset  string // "+HHMM" or "-HHMM"
}

// Commit represents a snapshot: a tree plus parent links and attribution.
type Commit struct {
	Tree      Hash
	Parents   []Hash
	Author    Identity
	Committer Identity
	Message   string
}

// Tag is an annotated reference to any object kind.
type Tag struct {
	Object  Hash
	Type    Kind
	Name    string
	Tagger  Identity
	Message string

	// Signature, when non-empty, is an SSH signature over the canonical
	// tag bytes computed with Signature == "" (see TagSigningPayload).
	// Additive relative to the base tag format: an empty Signature
	// produces byte-identical output to a tag with no signature support
	// at all.
	Signature string
}
