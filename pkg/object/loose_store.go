package object

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// LooseStore is a content-addressed object store with a 2-character
// fan-out directory layout: objects/ab/cdef0123...
type LooseStore struct {
	root string // directory containing "objects"
}

// NewLooseStore creates a LooseStore rooted at the given directory. The
// objects/ subdirectory is created lazily on first write.
func NewLooseStore(root string) *LooseStore {
	return &LooseStore{root: root}
}

func (s *LooseStore) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *LooseStore) Has(h Hash) bool {
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content ID. The on-disk format is
// zlib("<kind> <len>\0<content>"). Writes are idempotent: if the object
// already exists, its id is returned without touching the file. Otherwise
// the compressed form is written to a temp file and atomically renamed
// into place.
func (s *LooseStore) Write(kind Kind, data []byte) (Hash, error) {
	id := IDFor(kind, data)
	if s.Has(id) {
		return id, nil
	}

	envelope := makeEnvelope(kind, data)
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(envelope); err != nil {
		_ = zw.Close()
		return "", fmt.Errorf("loose write %s: compress: %w", id, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("loose write %s: compress close: %w", id, err)
	}

	dir := filepath.Join(s.root, "objects", string(id[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("loose write %s: mkdir: %w", id, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("loose write %s: tmpfile: %w", id, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(compressed.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("loose write %s: write: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("loose write %s: close: %w", id, err)
	}
	if err := os.Rename(tmpName, s.objectPath(id)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("loose write %s: rename: %w", id, err)
	}
	return id, nil
}

// ListHashes walks the fan-out directories and returns every object ID
// present in loose storage, in no particular order.
func (s *LooseStore) ListHashes() ([]Hash, error) {
	objectsDir := filepath.Join(s.root, "objects")
	fanoutDirs, err := os.ReadDir(objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list loose objects: %w", err)
	}

	var hashes []Hash
	for _, fanout := range fanoutDirs {
		if !fanout.IsDir() || len(fanout.Name()) != 2 {
			continue
		}
		prefix := fanout.Name()
		entries, err := os.ReadDir(filepath.Join(objectsDir, prefix))
		if err != nil {
			return nil, fmt.Errorf("list loose objects: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".tmp-") {
				continue
			}
			h := Hash(prefix + entry.Name())
			if _, err := rawHash(h); err != nil {
				continue
			}
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

// Remove deletes a loose object's on-disk file. Used after Pack folds the
// object into a packfile.
func (s *LooseStore) Remove(h Hash) error {
	if err := os.Remove(s.objectPath(h)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove loose object %s: %w", h, err)
	}
	return nil
}

// Read retrieves an object by ID, returning its kind and raw content.
func (s *LooseStore) Read(h Hash) (Kind, []byte, error) {
	raw, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("loose read %s: %w", h, ErrNotFound)
		}
		return "", nil, fmt.Errorf("loose read %s: %w", h, err)
	}

	if !looksLikeZlib(raw) {
		return "", nil, fmt.Errorf("loose read %s: %w", h, ErrNotLooseObject)
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", nil, fmt.Errorf("loose read %s: %w: %v", h, ErrNotLooseObject, err)
	}
	defer zr.Close()
	envelope, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, fmt.Errorf("loose read %s: decompress: %w", h, err)
	}

	return parseEnvelope(envelope)
}

// looksLikeZlib reports whether data begins with a valid zlib header: the
// first byte is 0x78, and the 16-bit big-endian header value is a
// multiple of 31.
func looksLikeZlib(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	if data[0] != 0x78 {
		return false
	}
	word := uint16(data[0])<<8 | uint16(data[1])
	return word%31 == 0
}

func makeEnvelope(kind Kind, data []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", kind, len(data))
	out := make([]byte, 0, len(header)+len(data))
	out = append(out, header...)
	out = append(out, data...)
	return out
}

// parseEnvelope splits "<kind> <len>\0<content>" and validates the
// declared length against the actual payload length.
func parseEnvelope(envelope []byte) (Kind, []byte, error) {
	nul := bytes.IndexByte(envelope, 0)
	if nul < 0 {
		return "", nil, fmt.Errorf("%w: envelope missing NUL separator", ErrMalformedObject)
	}
	header := string(envelope[:nul])
	content := envelope[nul+1:]

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("%w: malformed envelope header %q", ErrMalformedObject, header)
	}
	kind := Kind(parts[0])
	length, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid envelope length %q: %v", ErrMalformedObject, parts[1], err)
	}
	if len(content) != length {
		return "", nil, fmt.Errorf("%w: envelope length mismatch (header=%d, actual=%d)", ErrMalformedObject, length, len(content))
	}
	if !isKnownKind(kind) {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return kind, content, nil
}

func isKnownKind(k Kind) bool {
	switch k {
	case KindBlob, KindTree, KindCommit, KindTag:
		return true
	default:
		return false
	}
}
