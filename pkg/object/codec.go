package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// EncodeBlob serializes a Blob to raw bytes (identity).
func EncodeBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// DecodeBlob deserializes raw bytes into a Blob.
func DecodeBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// Tree
//
// Canonical form: concatenation, in canonical order, of
// "<mode> <name>\0<20-byte raw id>" — no separators, no terminators.
// ---------------------------------------------------------------------------

// treeEntryLess orders entries the way git does: directory names sort as
// if suffixed by "/", so "foo" sorts after "foo.go" but before "foo/bar".
func treeEntryLess(a, b TreeEntry) bool {
	an, bn := treeSortKey(a), treeSortKey(b)
	return an < bn
}

func treeSortKey(e TreeEntry) string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// sortedTreeEntries returns a copy of entries in canonical order.
func sortedTreeEntries(entries []TreeEntry) []TreeEntry {
	out := make([]TreeEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool {
		return treeEntryLess(out[i], out[j])
	})
	return out
}

// EncodeTree serializes a Tree to its canonical binary form. Entries are
// sorted first, so callers may pass entries in any order.
func EncodeTree(t *Tree) ([]byte, error) {
	entries := sortedTreeEntries(t.Entries)

	seen := make(map[string]struct{}, len(entries))
	var buf bytes.Buffer
	for _, e := range entries {
		if e.Name == "" || strings.ContainsRune(e.Name, '/') || strings.ContainsRune(e.Name, 0) {
			return nil, fmt.Errorf("%w: invalid tree entry name %q", ErrMalformedObject, e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tree entry name %q", ErrMalformedObject, e.Name)
		}
		seen[e.Name] = struct{}{}

		raw, err := rawHash(e.Target)
		if err != nil {
			return nil, fmt.Errorf("tree entry %q: %w", e.Name, err)
		}
		buf.WriteString(e.Mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// DecodeTree parses a Tree from its canonical binary form.
func DecodeTree(data []byte) (*Tree, error) {
	var entries []TreeEntry
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("%w: tree entry missing mode separator", ErrMalformedObject)
		}
		mode := string(data[:sp])
		rest := data[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: tree entry missing name terminator", ErrMalformedObject)
		}
		name := string(rest[:nul])
		rest = rest[nul+1:]

		if len(rest) < 20 {
			return nil, fmt.Errorf("%w: tree entry truncated id", ErrMalformedObject)
		}
		id := hashFromRaw(rest[:20])
		data = rest[20:]

		if !isKnownMode(mode) {
			return nil, fmt.Errorf("%w: unknown tree entry mode %q", ErrMalformedObject, mode)
		}
		entries = append(entries, TreeEntry{Mode: mode, Name: name, Target: id})
	}
	return &Tree{Entries: entries}, nil
}

func isKnownMode(mode string) bool {
	switch mode {
	case ModeFile, ModeExecutable, ModeSymlink, ModeDir:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Identity
//
// "<name> <<email>> <unix-seconds> <±HHMM>"
// ---------------------------------------------------------------------------

func encodeIdentity(id Identity) string {
	return fmt.Sprintf("%s <%s> %d %s", id.Name, id.Email, id.Timestamp, id.TZOffset)
}

func decodeIdentity(s string) (Identity, error) {
	lt := strings.LastIndex(s, "<")
	gt := strings.LastIndex(s, ">")
	if lt < 0 || gt < 0 || gt < lt {
		return Identity{}, fmt.Errorf("%w: malformed identity %q", ErrMalformedObject, s)
	}
	name := strings.TrimSpace(s[:lt])
	email := s[lt+1 : gt]
	rest := strings.TrimSpace(s[gt+1:])
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Identity{}, fmt.Errorf("%w: malformed identity timestamp/tz %q", ErrMalformedObject, rest)
	}
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad identity timestamp %q: %v", ErrMalformedObject, fields[0], err)
	}
	return Identity{Name: name, Email: email, Timestamp: ts, TZOffset: fields[1]}, nil
}

// ---------------------------------------------------------------------------
// Commit
//
// "tree <hex>\n" ("parent <hex>\n")* "author <identity>\n"
// "committer <identity>\n" "\n" <message bytes>
// ---------------------------------------------------------------------------

// EncodeCommit serializes a Commit to its canonical text form.
func EncodeCommit(c *Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", encodeIdentity(c.Author))
	fmt.Fprintf(&buf, "committer %s\n", encodeIdentity(c.Committer))
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// DecodeCommit parses a Commit from its canonical text form.
func DecodeCommit(data []byte) (*Commit, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: commit missing header/message separator", ErrMalformedObject)
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &Commit{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: malformed commit header line %q", ErrMalformedObject, line)
		}
		switch key {
		case "tree":
			c.Tree = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			id, err := decodeIdentity(val)
			if err != nil {
				return nil, err
			}
			c.Author = id
		case "committer":
			id, err := decodeIdentity(val)
			if err != nil {
				return nil, err
			}
			c.Committer = id
		default:
			return nil, fmt.Errorf("%w: unknown commit header key %q", ErrMalformedObject, key)
		}
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Tag
//
// "object <hex>\n" "type <kind>\n" "tag <name>\n" "tagger <identity>\n"
// ("signature <sig>\n")? "\n" <message bytes>
// ---------------------------------------------------------------------------

// TagSigningPayload returns the canonical bytes signed for a tag: the
// encoding with Signature cleared.
func TagSigningPayload(t *Tag) []byte {
	cp := *t
	cp.Signature = ""
	return EncodeTag(&cp)
}

// EncodeTag serializes a Tag to its canonical text form.
func EncodeTag(t *Tag) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.Object)
	fmt.Fprintf(&buf, "type %s\n", t.Type)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", encodeIdentity(t.Tagger))
	if strings.TrimSpace(t.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", t.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

// DecodeTag parses a Tag from its canonical text form.
func DecodeTag(data []byte) (*Tag, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("%w: tag missing header/message separator", ErrMalformedObject)
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	t := &Tag{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: malformed tag header line %q", ErrMalformedObject, line)
		}
		switch key {
		case "object":
			t.Object = Hash(val)
		case "type":
			t.Type = Kind(val)
		case "tag":
			t.Name = val
		case "tagger":
			id, err := decodeIdentity(val)
			if err != nil {
				return nil, err
			}
			t.Tagger = id
		case "signature":
			t.Signature = val
		default:
			return nil, fmt.Errorf("%w: unknown tag header key %q", ErrMalformedObject, key)
		}
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Generic encode/decode dispatch
// ---------------------------------------------------------------------------

// Encode serializes any of the four supported kinds to its canonical bytes.
func Encode(kind Kind, v interface{}) ([]byte, error) {
	switch kind {
	case KindBlob:
		return EncodeBlob(v.(*Blob)), nil
	case KindTree:
		return EncodeTree(v.(*Tree))
	case KindCommit:
		return EncodeCommit(v.(*Commit)), nil
	case KindTag:
		return EncodeTag(v.(*Tag)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Decode deserializes bytes of the given kind into the matching struct
// pointer (*Blob, *Tree, *Commit, or *Tag).
func Decode(kind Kind, data []byte) (interface{}, error) {
	switch kind {
	case KindBlob:
		return DecodeBlob(data)
	case KindTree:
		return DecodeTree(data)
	case KindCommit:
		return DecodeCommit(data)
	case KindTag:
		return DecodeTag(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
