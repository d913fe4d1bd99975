package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithFieldsAttachToContext(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithOrderID(ctx, "order-9")
	logg.Info(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("missing request_id: %v", entry)
	}
	if entry["order_id"] != "order-9" {
		t.Fatalf("missing order_id: %v", entry)
	}
	if entry["service"] != "test" {
		t.Fatalf("missing service name: %v", entry)
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "failed", errors.New("boom"))

	if !strings.Contains(buf.String(), "stack") {
		t.Fatal("expected stack field in error log")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Fatal("expected error message in log")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("debug should parse")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty should default to info")
	}
	if ParseLevel("garbage") != zerolog.InfoLevel {
		t.Fatal("garbage should default to info")
	}
}
