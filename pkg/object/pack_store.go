package object

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PackStore provides read-only access to one or more (pack, index) pairs
// under <root>/objects/pack.
type PackStore struct {
	root string
}

// NewPackStore creates a PackStore rooted at the given directory (the
// same root LooseStore uses; both share "objects/").
func NewPackStore(root string) *PackStore {
	return &PackStore{root: root}
}

// Read resolves an object ID against every pack under objects/pack,
// applying delta reconstruction as needed. resolveRef is consulted for
// ref-delta bases that are not present in the same pack (typically an
// ObjectDB method that can also consult loose storage).
func (s *PackStore) Read(h Hash, resolveRef baseResolver) (Kind, []byte, error) {
	idxPaths, err := s.listPackIndexPaths()
	if err != nil {
		return "", nil, err
	}
	for _, idxPath := range idxPaths {
		idx, pf, err := s.loadPack(idxPath)
		if err != nil {
			return "", nil, err
		}
		entry, ok := idx.Find(h)
		if !ok {
			continue
		}
		packEntry, ok := entryAtOffset(pf, entry.Offset)
		if !ok {
			return "", nil, fmt.Errorf("%w: index entry %s has no matching pack entry at offset %d", ErrCorruptPack, h, entry.Offset)
		}
		kind, data, err := ResolveEntry(pf, idx, packEntry, resolveRef)
		if err != nil {
			return "", nil, fmt.Errorf("object read %s: %w", h, err)
		}
		if computed := IDFor(kind, data); computed != h {
			return "", nil, fmt.Errorf("%w: packed object %s: computed id %s", ErrMalformedObject, h, computed)
		}
		return kind, data, nil
	}
	return "", nil, fmt.Errorf("pack read %s: %w", h, ErrNotFound)
}

// Has reports whether any pack index under objects/pack knows h.
func (s *PackStore) Has(h Hash) (bool, error) {
	idxPaths, err := s.listPackIndexPaths()
	if err != nil {
		return false, err
	}
	for _, idxPath := range idxPaths {
		idx, err := readPackIndexFile(idxPath)
		if err != nil {
			return false, err
		}
		if _, ok := idx.Find(h); ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *PackStore) loadPack(idxPath string) (*PackIndex, *PackFile, error) {
	idx, err := readPackIndexFile(idxPath)
	if err != nil {
		return nil, nil, err
	}
	packPath := packPathForIndex(idxPath)
	packData, err := os.ReadFile(packPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read pack %s: %w", filepath.Base(packPath), err)
	}
	pf, err := ReadPack(packData)
	if err != nil {
		return nil, nil, fmt.Errorf("parse pack %s: %w", filepath.Base(packPath), err)
	}
	if pf.Checksum != idx.PackChecksum {
		return nil, nil, fmt.Errorf(
			"%w: checksum mismatch between idx %s (%s) and pack (%s)",
			ErrCorruptPack, filepath.Base(idxPath), idx.PackChecksum, pf.Checksum,
		)
	}
	return idx, pf, nil
}

func readPackIndexFile(idxPath string) (*PackIndex, error) {
	data, err := os.ReadFile(idxPath)
	if err != nil {
		return nil, fmt.Errorf("read pack index %s: %w", filepath.Base(idxPath), err)
	}
	idx, err := ReadPackIndex(data)
	if err != nil {
		return nil, fmt.Errorf("parse pack index %s: %w", filepath.Base(idxPath), err)
	}
	return idx, nil
}

func (s *PackStore) listPackIndexPaths() ([]string, error) {
	packDir := filepath.Join(s.root, "objects", "pack")
	entries, err := os.ReadDir(packDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pack dir: %w", err)
	}

	idxPaths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".idx") {
			continue
		}
		idxPaths = append(idxPaths, filepath.Join(packDir, entry.Name()))
	}
	sort.Strings(idxPaths)
	return idxPaths, nil
}

func packPathForIndex(idxPath string) string {
	return strings.TrimSuffix(idxPath, ".idx") + ".pack"
}
