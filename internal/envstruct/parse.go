// Package envstruct populates configuration structs from environment variables.
package envstruct

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var (
	ErrEnvNotSet    = errors.New("environment variable not set")
	ErrInvalidValue = errors.New("v must be a pointer to a struct")
	ErrParse        = errors.New("parse environment variable")
)

//nolint:gochecknoglobals // type identity used when matching fields.
var durationType = reflect.TypeFor[time.Duration]()

// Populate populates the fields of the pointer to struct v with values from the environment.
//
// lookupEnv has the same signature as [os.LookupEnv]. Fields are tagged with `env:"ENV_VAR"`. When ENV_VAR is not
// set, the `envDefault:"value"` tag is used or else ErrEnvNotSet is returned. Supported field types are string,
// int, bool and [time.Duration]. All problems are reported at once.
func Populate(v any, lookupEnv func(string) (string, bool)) error {
	ptrRef := reflect.ValueOf(v)
	if ptrRef.Kind() != reflect.Pointer {
		return fmt.Errorf("%w: not pointer: %v", ErrInvalidValue, v)
	}
	ref := ptrRef.Elem()
	if ref.Kind() != reflect.Struct {
		return fmt.Errorf("%w: not struct: %v", ErrInvalidValue, v)
	}

	refType := ref.Type()
	var errorList []error
	for i := range refType.NumField() {
		field := refType.Field(i)
		envVarName, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}
		value := ref.Field(i)
		if !value.CanSet() {
			errorList = append(errorList, fmt.Errorf("%w: cannot set field: %s", ErrInvalidValue, field.Name))
			continue
		}

		raw, err := envLookupWithFallback(envVarName, field.Tag, lookupEnv)
		if err != nil {
			errorList = append(errorList, err)
			continue
		}
		if err = setField(value, raw); err != nil {
			errorList = append(errorList, fmt.Errorf("field %s (env %s): %w", field.Name, envVarName, err))
		}
	}

	return errors.Join(errorList...)
}

func setField(value reflect.Value, raw string) error {
	if value.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: duration %q: %w", ErrParse, raw, err)
		}
		value.SetInt(int64(d))
		return nil
	}

	switch value.Kind() { //nolint:exhaustive // everything else is unsupported.
	case reflect.String:
		value.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: int %q: %w", ErrParse, raw, err)
		}
		value.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: bool %q: %w", ErrParse, raw, err)
		}
		value.SetBool(b)
	default:
		return fmt.Errorf("%w: unsupported type %s", ErrInvalidValue, value.Type())
	}
	return nil
}

func envLookupWithFallback(
	envVarName string, tag reflect.StructTag, lookupEnv func(string) (string, bool)) (string, error) {
	if envVarValue, ok := lookupEnv(envVarName); ok {
		return envVarValue, nil
	}
	if fallback, ok := tag.Lookup("envDefault"); ok {
		return fallback, nil
	}
	return "", fmt.Errorf("%w: %s", ErrEnvNotSet, envVarName)
}
