package config

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate

	// mapIndex matches the [key] segments validator emits for map entries
	mapIndex = regexp.MustCompile(`\[([^\]]+)\]`)
)

// structValidator returns the shared validator, reporting fields by their koanf key.
func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks cfg and returns the first problem as a *ConfigError.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return toConfigError(fieldErrs[0])
		}
		return err
	}

	if err := cfg.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}

	return nil
}

// toConfigError maps a validator failure onto the ConfigError categories.
func toConfigError(fe validator.FieldError) *ConfigError {
	field := fieldPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field, EnvVar(field), field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %v", fe.Value()), strings.Fields(fe.Param()))
	case "url":
		return NewValidationError(field, fmt.Sprintf("invalid absolute url %q", fe.Value()))
	case "gte":
		return NewValidationError(field, fmt.Sprintf("must be at least %s", fe.Param()))
	case "lte":
		return NewValidationError(field, fmt.Sprintf("must be at most %s", fe.Param()))
	default:
		return NewValidationError(field, fmt.Sprintf("failed %s validation", fe.Tag()))
	}
}

// fieldPath turns Config.clients[payments].base_url into clients.payments.base_url.
func fieldPath(namespace string) string {
	path := namespace
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	return mapIndex.ReplaceAllString(path, ".$1")
}

// Client returns the configuration of the named client.
func (c *Config) Client(name string) (ClientConfig, error) {
	client, ok := c.Clients[name]
	if !ok {
		key := "clients." + name
		return ClientConfig{}, NewNotConfiguredError(key, EnvVar(key+".base_url"), key)
	}
	return client, nil
}

// ClientNames lists the configured client names in sorted order.
func (c *Config) ClientNames() []string {
	return slices.Sorted(maps.Keys(c.Clients))
}
