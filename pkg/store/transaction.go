package store

import (
	"fmt"
	"time"

	"github.com/arnegrid/pathkv/pkg/object"
)

// Transaction is the standard scoped acquisition: begin, run fn against
// this Store's working tree, commit with message on normal return,
// rollback on any error (from fn or from commit construction itself),
// with the lock guaranteed released on every exit path.
func (s *Store) Transaction(message string, fn func(*Store) error) error {
	tx, err := s.txMgr.Begin()
	if err != nil {
		return fmt.Errorf("transaction: %w", err)
	}

	if err := fn(s); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback also failed: %v)", ErrTransactionAborted, err, rbErr)
		}
		return fmt.Errorf("%w: %v", ErrTransactionAborted, err)
	}

	newHead, commitErr := s.buildCommit(tx.OldHead(), message)
	if commitErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w: %v (rollback also failed: %v)", ErrTransactionAborted, commitErr, rbErr)
		}
		return fmt.Errorf("%w: %v", ErrTransactionAborted, commitErr)
	}

	if err := tx.Commit(newHead); err != nil {
		return fmt.Errorf("transaction: commit: %w", err)
	}

	s.mu.Lock()
	s.head = newHead
	s.mu.Unlock()
	return nil
}

// buildCommit serializes the working tree and constructs+writes the new
// Commit object, but does not move the head ref (Transaction's caller
// does that via tx.Commit once this returns successfully).
func (s *Store) buildCommit(parent object.Hash, message string) (object.Hash, error) {
	treeID, err := s.wt.Write()
	if err != nil {
		return "", fmt.Errorf("write working tree: %w", err)
	}

	var parents []object.Hash
	if !parent.Empty() {
		parents = []object.Hash{parent}
	}

	identity, err := s.identity()
	if err != nil {
		return "", err
	}

	commit := &object.Commit{
		Tree:      treeID,
		Parents:   parents,
		Author:    identity,
		Committer: identity,
		Message:   message,
	}
	id, err := s.db.PutCommit(commit)
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}
	return id, nil
}

func (s *Store) identity() (object.Identity, error) {
	cfg, err := s.Config()
	if err != nil {
		return object.Identity{}, fmt.Errorf("identity: %w", err)
	}
	now := time.Now()
	return object.Identity{
		Name:      cfg.Identity.Name,
		Email:     cfg.Identity.Email,
		Timestamp: now.Unix(),
		TZOffset:  now.Format("-0700"),
	}, nil
}
