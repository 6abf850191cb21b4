package object

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// maxDeltaDepth bounds recursive delta resolution; exceeding it means the
// pack is malformed (a delta chain referencing itself, directly or
// transitively).
const maxDeltaDepth = 50

// PackEntry represents one object entry in a pack stream, before delta
// resolution. For PackOfsDelta/PackRefDelta entries, Data holds the raw
// delta instruction stream rather than final object bytes.
type PackEntry struct {
	Offset     uint64
	Type       PackObjectType
	Size       uint64 // declared uncompressed size of Data
	Data       []byte
	BaseOffset uint64 // set for PackOfsDelta: offset of the base entry
	BaseHash   Hash   // set for PackRefDelta
}

// PackFile is the decoded content of a full pack stream.
type PackFile struct {
	Header   PackHeader
	Entries  []PackEntry
	Checksum Hash
}

// ReadPack parses a full pack file byte slice, verifies the trailer
// checksum, and returns entries in encounter order without resolving
// deltas (see ResolveEntry / PackStore for resolution).
func ReadPack(data []byte) (*PackFile, error) {
	if len(data) < packHeaderSize+sha1.Size {
		return nil, fmt.Errorf("%w: pack too short: %d", ErrCorruptPack, len(data))
	}

	payload := data[:len(data)-sha1.Size]
	trailer := data[len(data)-sha1.Size:]

	sum := sha1.Sum(payload)
	if !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptPack)
	}

	header, err := UnmarshalPackHeader(payload[:packHeaderSize])
	if err != nil {
		return nil, err
	}

	offset := packHeaderSize
	entries := make([]PackEntry, 0, header.NumObjects)
	for i := uint32(0); i < header.NumObjects; i++ {
		entryStart := offset
		objType, size, n, err := decodePackEntryHeaderStrict(payload[offset:])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		offset += n

		entry := PackEntry{Offset: uint64(entryStart), Type: objType, Size: size}

		switch objType {
		case PackOfsDelta:
			distance, consumed, err := decodeOfsDeltaDistance(payload[offset:])
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			if distance == 0 || distance > uint64(entryStart) {
				return nil, fmt.Errorf("%w: entry %d: ofs-delta distance out of range", ErrCorruptPack, i)
			}
			entry.BaseOffset = uint64(entryStart) - distance
			offset += consumed
		case PackRefDelta:
			if offset+20 > len(payload) {
				return nil, fmt.Errorf("%w: entry %d: ref-delta base truncated", ErrCorruptPack, i)
			}
			entry.BaseHash = hashFromRaw(payload[offset : offset+20])
			offset += 20
		}

		if offset >= len(payload) {
			return nil, fmt.Errorf("%w: entry %d: missing compressed payload", ErrCorruptPack, i)
		}

		sub := bytes.NewReader(payload[offset:])
		zr, err := zlib.NewReader(sub)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: zlib reader: %v", ErrCorruptPack, i, err)
		}
		raw, err := io.ReadAll(zr)
		if err != nil {
			_ = zr.Close()
			return nil, fmt.Errorf("%w: entry %d: decompress: %v", ErrCorruptPack, i, err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: close zlib stream: %v", ErrCorruptPack, i, err)
		}
		if uint64(len(raw)) != size {
			return nil, fmt.Errorf("%w: entry %d: size mismatch header=%d decoded=%d", ErrCorruptPack, i, size, len(raw))
		}
		entry.Data = raw

		consumed := len(payload[offset:]) - sub.Len()
		offset += consumed

		entries = append(entries, entry)
	}

	if offset != len(payload) {
		return nil, fmt.Errorf("%w: trailing undecoded bytes: %d", ErrCorruptPack, len(payload)-offset)
	}

	return &PackFile{
		Header:   *header,
		Entries:  entries,
		Checksum: hashFromRaw(trailer),
	}, nil
}

// ReadPackFromReader reads a complete pack stream from r and delegates to
// ReadPack for decode and verification.
func ReadPackFromReader(r io.Reader) (*PackFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pack stream: %w", err)
	}
	return ReadPack(data)
}

func entryAtOffset(pf *PackFile, offset uint64) (PackEntry, bool) {
	for _, e := range pf.Entries {
		if e.Offset == offset {
			return e, true
		}
	}
	return PackEntry{}, false
}

// baseResolver looks up a ref-delta base by hash outside the current pack
// (another pack or loose storage); depth is the current delta-chain depth.
// ResolveEntry accepts a nil baseResolver, in which case only ref-delta
// bases found through the same pack's index can be resolved.
type baseResolver func(h Hash, depth int) (Kind, []byte, error)

// ResolveEntry resolves one pack entry to its final (kind, bytes),
// recursively applying ofs-delta/ref-delta chains. idx, when non-nil, is
// used to locate ref-delta bases within the same pack by hash; resolveRef
// is used for ref-delta bases not found in idx (typically delegating to
// an ObjectDB that can consult other packs or loose storage).
func ResolveEntry(pf *PackFile, idx *PackIndex, entry PackEntry, resolveRef baseResolver) (Kind, []byte, error) {
	memo := make(map[uint64][]byte)
	kindMemo := make(map[uint64]Kind)
	return resolveEntryOffset(pf, idx, entry.Offset, 0, memo, kindMemo, resolveRef)
}

func resolveEntryOffset(
	pf *PackFile,
	idx *PackIndex,
	offset uint64,
	depth int,
	memo map[uint64][]byte,
	kindMemo map[uint64]Kind,
	resolveRef baseResolver,
) (Kind, []byte, error) {
	if data, ok := memo[offset]; ok {
		return kindMemo[offset], data, nil
	}
	if depth > maxDeltaDepth {
		return "", nil, fmt.Errorf("%w: depth %d", ErrDeltaLoop, depth)
	}

	entry, ok := entryAtOffset(pf, offset)
	if !ok {
		return "", nil, fmt.Errorf("%w: no entry at offset %d", ErrCorruptPack, offset)
	}

	if kind, ok := packObjectTypeToKind(entry.Type); ok {
		memo[offset] = entry.Data
		kindMemo[offset] = kind
		return kind, entry.Data, nil
	}

	switch entry.Type {
	case PackOfsDelta:
		baseKind, baseData, err := resolveEntryOffset(pf, idx, entry.BaseOffset, depth+1, memo, kindMemo, resolveRef)
		if err != nil {
			return "", nil, err
		}
		result, err := applyDelta(baseData, entry.Data)
		if err != nil {
			return "", nil, err
		}
		memo[offset] = result
		kindMemo[offset] = baseKind
		return baseKind, result, nil

	case PackRefDelta:
		var baseKind Kind
		var baseData []byte
		var err error
		if idx != nil {
			if ie, found := idx.Find(entry.BaseHash); found {
				baseKind, baseData, err = resolveEntryOffset(pf, idx, ie.Offset, depth+1, memo, kindMemo, resolveRef)
			} else if resolveRef != nil {
				baseKind, baseData, err = resolveRef(entry.BaseHash, depth+1)
			} else {
				err = fmt.Errorf("%w: ref-delta base %s not found", ErrNotFound, entry.BaseHash)
			}
		} else if resolveRef != nil {
			baseKind, baseData, err = resolveRef(entry.BaseHash, depth+1)
		} else {
			err = fmt.Errorf("%w: ref-delta base %s not found", ErrNotFound, entry.BaseHash)
		}
		if err != nil {
			return "", nil, err
		}
		result, err := applyDelta(baseData, entry.Data)
		if err != nil {
			return "", nil, err
		}
		memo[offset] = result
		kindMemo[offset] = baseKind
		return baseKind, result, nil

	default:
		return "", nil, fmt.Errorf("%w: unsupported pack object type %d", ErrCorruptPack, entry.Type)
	}
}
