package object

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// PackResult summarizes a completed repack.
type PackResult struct {
	PackHash  Hash
	ObjectsIn int
	PackPath  string
	IndexPath string
}

// Pack folds every loose object under root into a single new packfile plus
// its v2 index, then removes the now-redundant loose files. Objects already
// held by an existing pack are left alone (Pack never rewrites packs).
//
// This is the renamed, non-delta-compressing analogue of a git-style GC:
// every entry is written as a full base object (see buildInsertOnlyDelta's
// doc comment for why this codebase never emits delta entries of its own).
func Pack(root string) (*PackResult, error) {
	loose := NewLooseStore(root)
	hashes, err := loose.ListHashes()
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	if len(hashes) == 0 {
		return &PackResult{}, nil
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	packDir := filepath.Join(root, "objects", "pack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		return nil, fmt.Errorf("pack: mkdir: %w", err)
	}

	tmpPackPath := filepath.Join(packDir, ".tmp-pack-incoming")
	packFile, err := os.Create(tmpPackPath)
	if err != nil {
		return nil, fmt.Errorf("pack: create temp pack: %w", err)
	}
	defer os.Remove(tmpPackPath)

	pw, err := NewPackWriter(packFile, uint32(len(hashes)))
	if err != nil {
		packFile.Close()
		return nil, fmt.Errorf("pack: %w", err)
	}

	entries := make([]PackIndexEntry, 0, len(hashes))
	for _, h := range hashes {
		kind, data, err := loose.Read(h)
		if err != nil {
			packFile.Close()
			return nil, fmt.Errorf("pack: read %s: %w", h, err)
		}
		packType, ok := kindToPackObjectType(kind)
		if !ok {
			packFile.Close()
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
		offset, crc, err := pw.WriteEntry(packType, data)
		if err != nil {
			packFile.Close()
			return nil, fmt.Errorf("pack: write entry %s: %w", h, err)
		}
		entries = append(entries, PackIndexEntry{Hash: h, Offset: offset, CRC32: crc})
	}

	packHash, err := pw.Finish()
	if err != nil {
		packFile.Close()
		return nil, fmt.Errorf("pack: %w", err)
	}
	if err := packFile.Close(); err != nil {
		return nil, fmt.Errorf("pack: close temp pack: %w", err)
	}

	finalBase := "pack-" + string(packHash)
	finalPackPath := filepath.Join(packDir, finalBase+".pack")
	finalIdxPath := filepath.Join(packDir, finalBase+".idx")

	if err := os.Rename(tmpPackPath, finalPackPath); err != nil {
		return nil, fmt.Errorf("pack: rename pack: %w", err)
	}

	idxFile, err := os.Create(finalIdxPath)
	if err != nil {
		return nil, fmt.Errorf("pack: create index: %w", err)
	}
	if _, err := WritePackIndex(idxFile, entries, packHash); err != nil {
		idxFile.Close()
		return nil, fmt.Errorf("pack: write index: %w", err)
	}
	if err := idxFile.Close(); err != nil {
		return nil, fmt.Errorf("pack: close index: %w", err)
	}

	for _, h := range hashes {
		if err := loose.Remove(h); err != nil {
			return nil, fmt.Errorf("pack: %w", err)
		}
	}

	return &PackResult{
		PackHash:  packHash,
		ObjectsIn: len(hashes),
		PackPath:  finalPackPath,
		IndexPath: finalIdxPath,
	}, nil
}
