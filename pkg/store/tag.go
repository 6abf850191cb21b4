package store

import (
	"fmt"
	"path/filepath"

	"github.com/arnegrid/pathkv/pkg/object"
	"github.com/arnegrid/pathkv/pkg/txn"
)

// TagSigner produces a detached signature over payload, returning an
// opaque string stored verbatim in the tag's Signature field.
type TagSigner func(payload []byte) (string, error)

// Tag annotates the current head commit and writes the resulting Tag
// object, optionally signing it with signer. A nil signer produces an
// unsigned tag, byte-identical to one written by a build with no
// signing support at all.
func (s *Store) Tag(name, message string, signer TagSigner) (object.Hash, error) {
	head := s.Head()
	if head.Empty() {
		return "", fmt.Errorf("tag: %s: no commits yet", name)
	}

	identity, err := s.identity()
	if err != nil {
		return "", err
	}

	t := &object.Tag{
		Object:  head,
		Type:    object.KindCommit,
		Name:    name,
		Tagger:  identity,
		Message: message,
	}

	if signer != nil {
		sig, err := signer(object.TagSigningPayload(t))
		if err != nil {
			return "", fmt.Errorf("tag: sign: %w", err)
		}
		t.Signature = sig
	}

	id, err := s.db.PutTag(t)
	if err != nil {
		return "", fmt.Errorf("tag: %w", err)
	}

	tagRefPath := filepath.Join(s.gitDir, "refs", "tags", name)
	if err := txn.WriteRef(tagRefPath, id); err != nil {
		return "", fmt.Errorf("tag: write ref: %w", err)
	}
	return id, nil
}
