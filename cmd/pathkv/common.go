package main

import (
	"fmt"

	"github.com/arnegrid/pathkv/pkg/payload"
	"github.com/arnegrid/pathkv/pkg/store"
	"gopkg.in/yaml.v3"
)

func openStore(branch string, bare bool) (*store.Store, error) {
	s, err := store.Open(".", branch, bare)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return s, nil
}

// decodeInputValue interprets a CLI string argument the same way the
// value would eventually be re-encoded for path, so that "set" followed
// by "get" round-trips through the same PayloadHandler dispatch.
func decodeInputValue(path, raw string) (interface{}, error) {
	if payload.ExtensionOf(path) == "yml" {
		var v interface{}
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("parse yaml value: %w", err)
		}
		return v, nil
	}
	return []byte(raw), nil
}

func formatValue(v interface{}) (string, error) {
	switch t := v.(type) {
	case []byte:
		return string(t), nil
	case string:
		return t, nil
	default:
		out, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("format value: %w", err)
		}
		return string(out), nil
	}
}
