package mappings

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Image is the full persisted document of one store: a flat JSON object whose
// key order is the insertion order of the keys. Images are treated as
// immutable once published by a Store; writers mutate a Clone.
type Image struct {
	keys   []string
	values map[string]json.RawMessage
}

func NewImage() *Image {
	return &Image{values: make(map[string]json.RawMessage)}
}

func (img *Image) Len() int {
	return len(img.keys)
}

// Keys returns the keys in insertion order.
func (img *Image) Keys() []string {
	out := make([]string, len(img.keys))
	copy(out, img.keys)
	return out
}

func (img *Image) Get(key string) (json.RawMessage, bool) {
	raw, ok := img.values[key]
	return raw, ok
}

// Set stores raw under key. An existing key keeps its position.
func (img *Image) Set(key string, raw json.RawMessage) {
	if _, exists := img.values[key]; !exists {
		img.keys = append(img.keys, key)
	}
	img.values[key] = raw
}

// Delete removes key and reports whether it was present.
func (img *Image) Delete(key string) bool {
	if _, exists := img.values[key]; !exists {
		return false
	}
	delete(img.values, key)
	for i, k := range img.keys {
		if k == key {
			img.keys = append(img.keys[:i:i], img.keys[i+1:]...)
			break
		}
	}
	return true
}

func (img *Image) Clone() *Image {
	out := &Image{
		keys:   make([]string, len(img.keys)),
		values: make(map[string]json.RawMessage, len(img.values)),
	}
	copy(out.keys, img.keys)
	for k, v := range img.values {
		out.values[k] = v
	}
	return out
}

func (img *Image) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range img.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(img.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat object keeping the document's key order.
// A JSON null decodes to an empty image.
func (img *Image) UnmarshalJSON(data []byte) error {
	*img = *NewImage()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("read image: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read image key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("read image: unexpected key token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("read image value for %q: %w", key, err)
		}
		img.Set(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	return nil
}
