package store

import "errors"

var (
	ErrRepositoryMissing  = errors.New("repository missing")
	ErrTransactionAborted = errors.New("transaction aborted")
)
