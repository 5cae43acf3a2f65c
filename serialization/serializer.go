// Package serialization provides the pluggable body codecs used by the REST client.
//
// A Serializer is synchronous and pure: it turns a value into wire bytes and back, and
// reports malformed input with an error. JSON is the default; CBOR is available for
// services that speak RFC 8949.
package serialization

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gaborage/go-restkit/headers"
)

const (
	// NameJSON selects the JSON serializer.
	NameJSON = "json"
	// NameCBOR selects the CBOR serializer.
	NameCBOR = "cbor"

	// ContentTypeJSON is the media type produced by the JSON serializer.
	ContentTypeJSON = "application/json"
	// ContentTypeCBOR is the media type produced by the CBOR serializer.
	ContentTypeCBOR = "application/cbor"
)

// ErrUnknownSerializer is returned by ForName for unsupported names.
var ErrUnknownSerializer = errors.New("unknown serializer")

// Serializer converts between typed values and body bytes.
// The header collection is the one attached to the message being encoded or decoded,
// which lets a serializer honor parameters such as charset.
type Serializer interface {
	Serialize(v any, h headers.Collection) ([]byte, error)
	Deserialize(data []byte, h headers.Collection, target any) error
	ContentType() string
}

// ForName returns the serializer registered under name (case-insensitive).
// An empty name selects JSON.
func ForName(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameJSON:
		return JSON(), nil
	case NameCBOR:
		return CBOR(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSerializer, name)
	}
}
