package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	logLevelField   = "log.level"
	paymentsBaseURL = "clients.payments.base_url"
	testField       = "test.field"
)

func TestConfigErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name: "complete error with all fields",
			err: &ConfigError{
				Category: "missing",
				Field:    paymentsBaseURL,
				Message:  "required",
				Action:   "set RESTKIT_CLIENTS__PAYMENTS__BASE_URL env var",
				Details:  []string{"detail1", "detail2"},
			},
			expected: "config_missing: clients.payments.base_url required set RESTKIT_CLIENTS__PAYMENTS__BASE_URL env var detail1; detail2",
		},
		{
			name: "error without category",
			err: &ConfigError{
				Field:   logLevelField,
				Message: "required",
			},
			expected: "log.level required",
		},
		{
			name: "error without field",
			err: &ConfigError{
				Category: "invalid",
				Message:  "configuration error",
				Action:   "check your config",
			},
			expected: "config_invalid: configuration error check your config",
		},
		{
			name: "error with only details",
			err: &ConfigError{
				Details: []string{"detail1", "detail2", "detail3"},
			},
			expected: "detail1; detail2; detail3",
		},
		{
			name:     "empty error",
			err:      &ConfigError{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	err := &ConfigError{Category: "invalid", Field: testField}
	assert.Nil(t, err.Unwrap(), "Unwrap should always return nil for leaf errors")
	assert.Nil(t, errors.Unwrap(err))
}

func TestNewMissingFieldError(t *testing.T) {
	err := NewMissingFieldError(logLevelField, "RESTKIT_LOG__LEVEL", logLevelField)

	assert.Equal(t, "missing", err.Category)
	assert.Equal(t, logLevelField, err.Field)
	assert.Equal(t, "required", err.Message)
	assert.Contains(t, err.Action, "RESTKIT_LOG__LEVEL")
	assert.Contains(t, err.Action, logLevelField)
}

func TestNewInvalidFieldError(t *testing.T) {
	tests := []struct {
		name         string
		validOptions []string
		wantAction   bool
	}{
		{name: "invalid with options", validOptions: []string{"json", "cbor"}, wantAction: true},
		{name: "invalid without options", validOptions: nil},
		{name: "invalid with empty options", validOptions: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInvalidFieldError("clients.payments.serializer", "invalid value xml", tt.validOptions)

			assert.Equal(t, "invalid", err.Category)
			assert.Equal(t, "clients.payments.serializer", err.Field)
			assert.Equal(t, "invalid value xml", err.Message)

			if tt.wantAction {
				assert.Equal(t, "must be one of: json, cbor", err.Action)
			} else {
				assert.Empty(t, err.Action)
			}
		})
	}
}

func TestNewNotConfiguredError(t *testing.T) {
	err := NewNotConfiguredError("clients.billing", "RESTKIT_CLIENTS__BILLING__BASE_URL", "clients.billing")

	assert.Equal(t, "not_configured", err.Category)
	assert.Equal(t, "clients.billing", err.Field)
	assert.Equal(t, "(optional)", err.Message)
	assert.Contains(t, err.Action, "to enable")
	assert.Contains(t, err.Action, "RESTKIT_CLIENTS__BILLING__BASE_URL")
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("clients.payments.timeout", "must be at least 0")

	assert.Equal(t, "invalid", err.Category)
	assert.Equal(t, "clients.payments.timeout", err.Field)
	assert.Equal(t, "must be at least 0", err.Message)
	assert.Empty(t, err.Action)
	assert.Empty(t, err.Details)
}

func TestIsNotConfigured(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error returns false", err: nil, expected: false},
		{name: "ErrNotConfigured sentinel returns true", err: ErrNotConfigured, expected: true},
		{name: "wrapped ErrNotConfigured returns true", err: fmt.Errorf("clients: %w", ErrNotConfigured), expected: true},
		{
			name:     "ConfigError with not_configured category returns true",
			err:      &ConfigError{Category: "not_configured", Field: "clients.billing"},
			expected: true,
		},
		{
			name:     "wrapped not_configured ConfigError returns true",
			err:      fmt.Errorf("lookup: %w", NewNotConfiguredError("clients.billing", "X", "clients.billing")),
			expected: true,
		},
		{
			name:     "ConfigError with missing category returns false",
			err:      NewMissingFieldError(logLevelField, "RESTKIT_LOG__LEVEL", logLevelField),
			expected: false,
		},
		{
			name:     "ConfigError with invalid category returns false",
			err:      NewValidationError(logLevelField, "unsupported"),
			expected: false,
		},
		{name: "generic error returns false", err: errors.New("some generic error"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotConfigured(tt.err))
		})
	}
}
