package payload

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RawHandler treats blob bytes as opaque: decode and encode are both the
// identity function on []byte.
type RawHandler struct{}

func (RawHandler) Decode(_ string, data []byte) (interface{}, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (RawHandler) Encode(_ string, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("raw handler: unsupported value type %T", value)
	}
}

// YAMLHandler losslessly round-trips structured values through yaml.v3.
type YAMLHandler struct{}

func (YAMLHandler) Decode(path string, data []byte) (interface{}, error) {
	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml handler: %s: %w", path, err)
	}
	return v, nil
}

func (YAMLHandler) Encode(path string, value interface{}) ([]byte, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("yaml handler: %s: %w", path, err)
	}
	return data, nil
}
