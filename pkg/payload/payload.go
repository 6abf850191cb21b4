// Package payload converts user values to and from blob bytes based on the
// filename extension of the path under which they are stored.
package payload

import (
	"fmt"
	"strings"
)

// Handler encodes and decodes a value for one class of path extension.
type Handler interface {
	Decode(path string, data []byte) (interface{}, error)
	Encode(path string, value interface{}) ([]byte, error)
}

// Registry dispatches to a Handler by the path's extension. A single
// default handler covers every extension with no specific registration.
type Registry struct {
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry builds the standard registry: a structured "yml" handler and
// a raw-bytes default.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.Register("yml", YAMLHandler{})
	r.fallback = RawHandler{}
	return r
}

// Register installs handler for the given extension (without the leading
// dot), overwriting any existing registration.
func (r *Registry) Register(ext string, handler Handler) {
	r.handlers[ext] = handler
}

// For returns the handler responsible for path, falling back to the
// default raw-bytes handler when no extension-specific handler matches.
func (r *Registry) For(path string) Handler {
	if h, ok := r.handlers[ExtensionOf(path)]; ok {
		return h
	}
	return r.fallback
}

// Decode is a convenience wrapper around For(path).Decode.
func (r *Registry) Decode(path string, data []byte) (interface{}, error) {
	v, err := r.For(path).Decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}

// Encode is a convenience wrapper around For(path).Encode.
func (r *Registry) Encode(path string, value interface{}) ([]byte, error) {
	b, err := r.For(path).Encode(path, value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return b, nil
}

// ExtensionOf returns the substring after the last '.' of the leaf name,
// or "" if the leaf has no dot.
func ExtensionOf(path string) string {
	leaf := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		leaf = path[idx+1:]
	}
	dot := strings.LastIndexByte(leaf, '.')
	if dot < 0 || dot == len(leaf)-1 {
		return ""
	}
	return leaf[dot+1:]
}
