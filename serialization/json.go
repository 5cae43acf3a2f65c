package serialization

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gaborage/go-restkit/headers"
)

type jsonSerializer struct{}

// JSON returns the default serializer based on encoding/json.
func JSON() Serializer {
	return jsonSerializer{}
}

func (jsonSerializer) ContentType() string {
	return ContentTypeJSON
}

func (jsonSerializer) Serialize(v any, _ headers.Collection) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json marshal failed: %w", err)
	}
	return data, nil
}

func (jsonSerializer) Deserialize(data []byte, _ headers.Collection, target any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("json unmarshal failed: empty body")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}
	return nil
}
