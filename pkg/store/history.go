package store

import (
	"errors"
	"fmt"

	"github.com/arnegrid/pathkv/pkg/object"
)

// Commits walks parent pointers starting at start (the in-memory head if
// start is empty), following only the first parent of any merge commit,
// and returns up to limit commits in reverse-chronological order (newest
// first).
func (s *Store) Commits(limit int, start object.Hash) ([]*object.Commit, error) {
	if start.Empty() {
		start = s.Head()
	}

	var commits []*object.Commit
	current := start
	for len(commits) < limit && !current.Empty() {
		c, err := s.db.GetCommit(current)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("commits: read %s: %w", current, err)
		}
		commits = append(commits, c)

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}
	return commits, nil
}
