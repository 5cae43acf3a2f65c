package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-restkit/headers"
)

// MockSerializer provides a testify-based mock implementation of serialization.Serializer.
//
// Example usage:
//
//	s := mocks.NewMockSerializer("application/x-test")
//	s.ExpectSerialize([]byte(`payload`), nil)
//	s.On("Deserialize", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
type MockSerializer struct {
	mock.Mock

	contentType string
}

// NewMockSerializer creates a mock serializer reporting contentType.
func NewMockSerializer(contentType string) *MockSerializer {
	return &MockSerializer{contentType: contentType}
}

// Serialize implements serialization.Serializer
func (m *MockSerializer) Serialize(v any, h headers.Collection) ([]byte, error) {
	args := m.Called(v, h)
	var data []byte
	if b := args.Get(0); b != nil {
		data = b.([]byte)
	}
	return data, args.Error(1)
}

// Deserialize implements serialization.Serializer. A non-nil Run function can fill target.
func (m *MockSerializer) Deserialize(data []byte, h headers.Collection, target any) error {
	args := m.Called(data, h, target)
	return args.Error(0)
}

// ContentType implements serialization.Serializer
func (m *MockSerializer) ContentType() string {
	return m.contentType
}

// ExpectSerialize sets up a Serialize expectation for any value.
func (m *MockSerializer) ExpectSerialize(data []byte, err error) *mock.Call {
	return m.On("Serialize", mock.Anything, mock.Anything).Return(data, err)
}

// ExpectDeserialize sets up a Deserialize expectation for any payload.
func (m *MockSerializer) ExpectDeserialize(err error) *mock.Call {
	return m.On("Deserialize", mock.Anything, mock.Anything, mock.Anything).Return(err)
}
