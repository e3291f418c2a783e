package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LoadOptions struct {
	// EnvFiles are loaded into the process environment before reading
	// config. Missing files are not an error; production usually has none.
	EnvFiles []string
}

func DefaultLoadOptions() *LoadOptions {
	return &LoadOptions{EnvFiles: []string{".env"}}
}

// Load builds a Config from struct-tag defaults overridden by environment
// variables, optionally sourced from .env files.
func Load(options *LoadOptions) (*Config, error) {
	if options == nil {
		options = DefaultLoadOptions()
	}

	if len(options.EnvFiles) > 0 {
		_ = godotenv.Load(options.EnvFiles...)
	}

	config := &Config{}
	if err := fillStruct(reflect.ValueOf(config).Elem()); err != nil {
		return nil, err
	}

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate applies the cross-field checks a well-formed Config must pass.
func Validate(config *Config) error {
	if config.App.Name == "" {
		return fmt.Errorf("app name must not be empty")
	}
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", config.Server.Port)
	}
	if config.Database.MaxIdleConns > config.Database.MaxOpenConns {
		return fmt.Errorf("max idle connections (%d) exceeds max open connections (%d)",
			config.Database.MaxIdleConns, config.Database.MaxOpenConns)
	}
	return nil
}

// EnvProperties snapshots the process environment as a property map for
// condition evaluation.
func EnvProperties() map[string]string {
	props := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			props[key] = value
		}
	}
	return props
}

func fillStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := fillStruct(field); err != nil {
				return err
			}
			continue
		}

		raw := fieldType.Tag.Get("default")
		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue, ok := os.LookupEnv(envKey); ok {
				raw = envValue
			}
		}
		if raw == "" {
			continue
		}

		if err := setField(field, raw); err != nil {
			return fmt.Errorf("field %s: %w", fieldType.Name, err)
		}
	}

	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid bool %q: %w", raw, err)
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", raw, err)
			}
			field.SetInt(int64(parsed))
			return nil
		}
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", raw, err)
		}
		field.SetInt(parsed)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
