package payload

import (
	"bytes"
	"testing"
)

func TestExtensionOf(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"config.yml", "yml"},
		{"a/b/config.yml", "yml"},
		{"noext", ""},
		{"trailing.dot.", ""},
		{"a.b.c", "c"},
	}
	for _, c := range cases {
		if got := ExtensionOf(c.path); got != c.want {
			t.Errorf("ExtensionOf(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.For("notes.yml").(YAMLHandler); !ok {
		t.Errorf("For(notes.yml) did not return YAMLHandler")
	}
	if _, ok := r.For("blob.bin").(RawHandler); !ok {
		t.Errorf("For(blob.bin) did not return RawHandler")
	}
}

func TestRawRoundTrip(t *testing.T) {
	r := NewRegistry()
	want := []byte("hello world")

	encoded, err := r.Encode("data.bin", want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := r.Decode("data.bin", encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.([]byte)
	if !ok {
		t.Fatalf("decoded value is %T, want []byte", decoded)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch: got %q, want %q", got, want)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	r := NewRegistry()
	want := map[string]interface{}{"name": "ada", "count": 3}

	encoded, err := r.Encode("config.yml", want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := r.Decode("config.yml", encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, ok := decoded.(map[string]interface{})
	if !ok {
		t.Fatalf("decoded value is %T, want map[string]interface{}", decoded)
	}
	if got["name"] != "ada" {
		t.Errorf("name = %v, want ada", got["name"])
	}
	if count, ok := got["count"].(int); !ok || count != 3 {
		t.Errorf("count = %v, want 3", got["count"])
	}
}
