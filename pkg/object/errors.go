package object

import "errors"

// Error taxonomy, per the on-disk integrity and lookup failure modes an
// object database can hit.
var (
	ErrNotFound           = errors.New("object not found")
	ErrMalformedObject    = errors.New("malformed object")
	ErrNotLooseObject     = errors.New("not a loose object")
	ErrUnknownKind        = errors.New("unknown object kind")
	ErrCorruptPack        = errors.New("corrupt pack")
	ErrUnknownPackVersion = errors.New("unsupported pack version")
	ErrDeltaLoop          = errors.New("delta resolution depth exceeded")
)
