package serialization

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/gaborage/go-restkit/headers"
)

// Encoding is canonical so equal values always produce equal bytes. Decoding is bounded
// to keep hostile payloads from exhausting memory or stack.
var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

//nolint:gochecknoinits // CBOR modes are built once at package load
func init() {
	var err error

	cborEncMode, err = cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}

	cborDecMode, err = cbor.DecOptions{
		MaxArrayElements: 10000,
		MaxMapPairs:      10000,
		MaxNestedLevels:  16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoding mode: %v", err))
	}
}

type cborSerializer struct{}

// CBOR returns a serializer for application/cbor bodies.
func CBOR() Serializer {
	return cborSerializer{}
}

func (cborSerializer) ContentType() string {
	return ContentTypeCBOR
}

func (cborSerializer) Serialize(v any, _ headers.Collection) ([]byte, error) {
	data, err := cborEncMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}
	return data, nil
}

func (cborSerializer) Deserialize(data []byte, _ headers.Collection, target any) error {
	if len(data) == 0 {
		return fmt.Errorf("cbor unmarshal failed: empty body")
	}
	if err := cborDecMode.Unmarshal(data, target); err != nil {
		return fmt.Errorf("cbor unmarshal failed: %w", err)
	}
	return nil
}
