// Package codec provides the serialization capability handed to components
// that read spec blobs or write the compact SKU list.
package codec

import (
	gojson "github.com/goccy/go-json"
)

// Codec marshals and unmarshals values.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is a Codec backed by goccy/go-json.
type JSON struct{}

// NewJSON returns the JSON codec.
func NewJSON() JSON { return JSON{} }

// Marshal encodes v as compact JSON.
func (JSON) Marshal(v any) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error {
	return gojson.Unmarshal(data, v)
}
