package object

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
)

type packCountedWriter struct {
	w io.Writer
	n uint64
}

func (cw *packCountedWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}

func (cw *packCountedWriter) Count() uint64 { return cw.n }

func compressPackPayload(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PackWriter writes pack streams with zlib-compressed, non-delta object
// entries (this spec never writes delta-compressed entries — see
// buildInsertOnlyDelta's doc comment). The trailer checksum is SHA-1 over
// all bytes preceding the trailer, matching PackIndex's own checksum
// format.
type PackWriter struct {
	out      io.Writer
	hasher   hash.Hash
	hashedW  io.Writer
	counter  *packCountedWriter
	expected uint32
	written  uint32
	finished bool
}

// NewPackWriter initializes a new writer and writes the fixed pack header.
func NewPackWriter(out io.Writer, numObjects uint32) (*PackWriter, error) {
	hasher := sha1.New()
	counter := &packCountedWriter{w: out}
	pw := &PackWriter{
		out:      out,
		hasher:   hasher,
		hashedW:  io.MultiWriter(counter, hasher),
		counter:  counter,
		expected: numObjects,
	}

	header := PackHeader{Version: supportedPackVersion, NumObjects: numObjects}
	if _, err := pw.hashedW.Write(header.Marshal()); err != nil {
		return nil, fmt.Errorf("write pack header: %w", err)
	}
	return pw, nil
}

// CurrentOffset returns the current byte offset in the pack stream.
func (p *PackWriter) CurrentOffset() uint64 { return p.counter.Count() }

// WriteEntry appends one non-delta object entry to the pack stream,
// returning the entry's starting offset and the CRC32 of its on-wire
// bytes (header plus compressed payload), both needed for the index row
// WritePackIndex expects.
func (p *PackWriter) WriteEntry(objType PackObjectType, data []byte) (uint64, uint32, error) {
	if p.finished {
		return 0, 0, fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return 0, 0, fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}

	offset := p.counter.Count()
	header := encodePackEntryHeader(objType, uint64(len(data)))
	compressed, err := compressPackPayload(data)
	if err != nil {
		return 0, 0, fmt.Errorf("compress pack entry: %w", err)
	}

	crc := crc32.NewIEEE()
	teed := io.MultiWriter(p.hashedW, crc)
	if _, err := teed.Write(header); err != nil {
		return 0, 0, fmt.Errorf("write pack entry header: %w", err)
	}
	if _, err := teed.Write(compressed); err != nil {
		return 0, 0, fmt.Errorf("write compressed pack entry: %w", err)
	}

	p.written++
	return offset, crc.Sum32(), nil
}

// Finish validates the object count, writes the trailing pack checksum,
// and returns that checksum as a hex digest.
func (p *PackWriter) Finish() (Hash, error) {
	if p.finished {
		return "", fmt.Errorf("pack writer already finished")
	}
	if p.written != p.expected {
		return "", fmt.Errorf("pack object count mismatch: wrote %d, expected %d", p.written, p.expected)
	}
	sum := p.hasher.Sum(nil)
	if _, err := p.out.Write(sum); err != nil {
		return "", fmt.Errorf("write pack trailer checksum: %w", err)
	}
	p.finished = true
	return hashFromRaw(sum), nil
}
