package store

import (
	"fmt"

	"github.com/arnegrid/pathkv/pkg/object"
)

// Pack folds all loose objects into a new packfile and index, then drops
// the now-redundant loose files. Safe to call concurrently with reads;
// not safe to call concurrently with another Pack on the same git dir.
func (s *Store) Pack() (*object.PackResult, error) {
	result, err := object.Pack(s.gitDir)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	s.db.Clear()
	return result, nil
}

// Verify re-hashes every loose and packed object and cross-checks each
// pack's trailer checksum against its index, returning a report rather
// than failing fast.
func (s *Store) Verify() (*object.VerifyReport, error) {
	report, err := object.Verify(s.gitDir)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	return report, nil
}
