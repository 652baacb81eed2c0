package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// TestLogger_IncludesStoreField verifies the store name is present in log output.
func TestLogger_IncludesStoreField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	storeLogger := logger.WithStore("search_results")
	storeLogger.Info(context.Background(), "test message")

	output := buf.String()

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, output)
	}

	if v, ok := logEntry["cache.store"].(string); !ok || v != "search_results" {
		t.Errorf("expected cache.store='search_results', got %v", logEntry["cache.store"])
	}
	if v, ok := logEntry["msg"].(string); !ok || v != "test message" {
		t.Errorf("expected msg='test message', got %v", logEntry["msg"])
	}
}

// TestLogger_WithStoreDoesNotMutateParent verifies WithStore returns a copy.
func TestLogger_WithStoreDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	_ = logger.WithStore("child")
	logger.Info(context.Background(), "parent message")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}
	if _, ok := logEntry["cache.store"]; ok {
		t.Error("parent logger picked up the child's store attribute")
	}
}

// TestLogger_IncludesFields verifies arbitrary structured fields pass through.
func TestLogger_IncludesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "lookup complete",
		Field{Key: "namespace", Value: "search"},
		Field{Key: "duration_ms", Value: 12.5},
	)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["namespace"].(string); !ok || v != "search" {
		t.Errorf("expected namespace='search', got %v", logEntry["namespace"])
	}
	if v, ok := logEntry["duration_ms"].(float64); !ok || v != 12.5 {
		t.Errorf("expected duration_ms=12.5, got %v", logEntry["duration_ms"])
	}
}

// TestLogger_ErrorLevel verifies error log level and error field.
func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "persist failed",
		Field{Key: "error", Value: "disk full"},
	)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}

	if v, ok := logEntry["level"].(string); !ok || v != "error" {
		t.Errorf("expected level='error', got %v", logEntry["level"])
	}
	if v, ok := logEntry["error"].(string); !ok || v != "disk full" {
		t.Errorf("expected error='disk full', got %v", logEntry["error"])
	}
}

// TestLogger_PayloadRedacted verifies cached payloads never reach log output.
func TestLogger_PayloadRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "cache write",
		Field{Key: "payload", Value: `{"results":"proprietary search output"}`},
	)

	output := buf.String()
	if strings.Contains(output, "proprietary search output") {
		t.Error("raw payload should be redacted, but found in output")
	}
	if !strings.Contains(output, "[REDACTED]") {
		t.Error("expected [REDACTED] marker in output")
	}
}

// TestLogger_CredentialFieldsRedacted verifies credential-shaped keys are
// redacted.
func TestLogger_CredentialFieldsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	for _, key := range []string{"password", "secret", "token", "api_key"} {
		buf.Reset()
		logger.Info(context.Background(), "test",
			Field{Key: key, Value: "hunter2"},
		)
		if strings.Contains(buf.String(), "hunter2") {
			t.Errorf("field %q not redacted", key)
		}
	}
}

// TestLogger_LevelFiltering verifies log level filtering.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Info(context.Background(), "info message")
	if strings.Contains(buf.String(), "info message") {
		t.Error("info message should be filtered when level is warn")
	}

	logger.Warn(context.Background(), "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("warn message should pass through when level is warn")
	}
}

// TestLogger_DebugLevel verifies debug entries appear at debug level.
func TestLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Debug(context.Background(), "debug message")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v", err)
	}
	if v, ok := logEntry["level"].(string); !ok || v != "debug" {
		t.Errorf("expected level='debug', got %v", logEntry["level"])
	}
}

// TestParseLogLevel verifies level parsing including the default.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
