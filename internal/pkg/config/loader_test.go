package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_STR", "")
	assert.Equal(t, "fallback", LoadEnvString("TEST_STR", "fallback"))

	t.Setenv("TEST_STR", "value")
	assert.Equal(t, "value", LoadEnvString("TEST_STR", "fallback"))
}

func TestLoadEnvList(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"business", []string{"business"}},
		{" business , technology,,sports ", []string{"business", "technology", "sports"}},
		{" , ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("TEST_LIST", tt.raw)
			assert.Equal(t, tt.want, LoadEnvList("TEST_LIST"))
		})
	}
}

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		want         string
		wantFallback bool
	}{
		{"unset", "", "UTC", false},
		{"valid", "Asia/Tokyo", "Asia/Tokyo", false},
		{"invalid", "Mars/Olympus", "UTC", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_TZ", tt.raw)
			r := LoadEnvWithFallback("TEST_TZ", "UTC", ValidateTimezone)
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied)
			if tt.wantFallback {
				require.Len(t, r.Warnings, 1)
				assert.Contains(t, r.Warnings[0], "TEST_TZ")
				assert.Contains(t, r.Warnings[0], "Mars/Olympus")
			} else {
				assert.Empty(t, r.Warnings)
			}
		})
	}

	t.Run("nil validator accepts anything", func(t *testing.T) {
		t.Setenv("TEST_TZ", "anything")
		r := LoadEnvWithFallback("TEST_TZ", "UTC", nil)
		assert.Equal(t, "anything", r.Value)
	})
}

func TestLoadEnvDuration(t *testing.T) {
	within := func(d time.Duration) error { return ValidateDuration(d, time.Second, time.Hour) }

	tests := []struct {
		name         string
		raw          string
		want         time.Duration
		wantFallback bool
	}{
		{"unset", "", 10 * time.Minute, false},
		{"valid", "90s", 90 * time.Second, false},
		{"unparseable", "ten minutes", 10 * time.Minute, true},
		{"out of range", "2h", 10 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DUR", tt.raw)
			r := LoadEnvDuration("TEST_DUR", 10*time.Minute, within)
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied)
			if tt.wantFallback {
				assert.Contains(t, r.Warnings[0], "falling back to default '10m0s'")
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	port := func(v int) error { return ValidateIntRange(v, 1, 65535) }

	tests := []struct {
		name         string
		raw          string
		want         int
		wantFallback bool
	}{
		{"unset", "", 9090, false},
		{"valid", "8080", 8080, false},
		{"surrounding space", " 8080 ", 8080, false},
		{"not a number", "80a", 9090, true},
		{"float", "80.5", 9090, true},
		{"out of range", "70000", 9090, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.raw)
			r := LoadEnvInt("TEST_INT", 9090, port)
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied)
		})
	}
}

func TestLoadEnvBool(t *testing.T) {
	tests := []struct {
		raw          string
		want         bool
		wantFallback bool
	}{
		{"", true, false},
		{"false", false, false},
		{"0", false, false},
		{"TRUE", true, false},
		{"yes", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.raw)
			r := LoadEnvBool("TEST_BOOL", true)
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied)
			if tt.wantFallback {
				assert.Contains(t, r.Warnings[0], "invalid boolean format")
			}
		})
	}
}

func TestConfigLoadResult_LogWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	t.Setenv("TEST_INT", "nope")
	LoadEnvInt("TEST_INT", 3, nil).LogWarnings(logger, "fallback", "TEST_INT")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "level=WARN"))
	assert.Contains(t, out, "env=TEST_INT")
	assert.Contains(t, out, "invalid integer format")

	buf.Reset()
	ConfigLoadResult{Value: 3}.LogWarnings(logger, "fallback", "TEST_INT")
	assert.Empty(t, buf.String())
}
