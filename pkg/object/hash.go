package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashBytes computes the raw SHA-1 hash of data and returns it lowercase hex
// encoded.
func HashBytes(data []byte) Hash {
	sum := sha1.Sum(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// IDFor computes the content ID for an object envelope, mirroring git's
// object hashing: SHA1("<kind> <len>\0<content>").
func IDFor(kind Kind, data []byte) Hash {
	header := fmt.Sprintf("%s %d\x00", kind, len(data))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

func rawHash(h Hash) ([]byte, error) {
	if len(h) != 40 {
		return nil, fmt.Errorf("%w: hash length must be 40 hex chars, got %d", ErrMalformedObject, len(h))
	}
	raw, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hash %q: %v", ErrMalformedObject, h, err)
	}
	return raw, nil
}

func hashFromRaw(raw []byte) Hash {
	return Hash(hex.EncodeToString(raw))
}
