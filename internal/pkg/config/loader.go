// Package config reads environment variables with a fail-open policy:
// an unset variable yields the default silently, an invalid one yields the
// default plus a warning the caller is expected to log.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigLoadResult is the outcome of loading one variable.
// Value holds the parsed value or the default and always has the default's type.
type ConfigLoadResult struct {
	Value           any
	Warnings        []string
	FallbackApplied bool
}

// LogWarnings writes each warning at Warn level, tagged with the env key.
func (r ConfigLoadResult) LogWarnings(logger *slog.Logger, msg, envKey string) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, w := range r.Warnings {
		logger.Warn(msg, slog.String("env", envKey), slog.String("warning", w))
	}
}

// load is the shared path of every typed loader. parse failures and
// validation failures both fall back to def.
func load[T any](envKey string, def T, parse func(string) (T, error), validate func(T) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ConfigLoadResult{Value: def}
	}

	v, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(v)
	}
	if err != nil {
		return ConfigLoadResult{
			Value:           def,
			Warnings:        []string{fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, err, def)},
			FallbackApplied: true,
		}
	}
	return ConfigLoadResult{Value: v}
}

// LoadEnvString returns the variable or defaultValue when it is unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// LoadEnvList splits a comma separated variable, dropping blank entries.
// An unset variable yields nil.
func LoadEnvList(envKey string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(envKey), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadEnvWithFallback loads a string checked by validator (may be nil).
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a time.ParseDuration string such as "90s" or "10m".
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	return load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	return load(envKey, defaultValue, func(s string) (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, errors.New("invalid integer format")
		}
		return n, nil
	}, validator)
}

// LoadEnvBool accepts the spellings strconv.ParseBool accepts.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	return load(envKey, defaultValue, func(s string) (bool, error) {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, errors.New("invalid boolean format, expected 'true' or 'false'")
		}
		return b, nil
	}, nil)
}
