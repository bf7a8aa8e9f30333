package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWriter(&buf, LoggingConfig{Level: "debug", Format: "json"})
	l.NewComponentLogger("registry").WithSession("s1", "signup").Debug("mounted")

	out := buf.String()
	for _, want := range []string{`"component":"registry"`, `"session":"s1"`, `"form":"signup"`, `"message":"mounted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in %s", want, out)
		}
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWriter(&buf, LoggingConfig{Level: "warn", Format: "json"})
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered at warn level, got %s", buf.String())
	}
}

func TestLoggerFileClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formfield.log")
	l, err := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	l.NewComponentLogger("app").Info("started")

	if err := l.NewComponentLogger("serve").Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Expected repeated Close to succeed, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"message":"started"`) {
		t.Errorf("Expected the entry in the file, got %q", data)
	}
}

func TestLoggerCloseWithoutFile(t *testing.T) {
	std, err := NewLogger(LoggingConfig{Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	var nilLogger *Logger
	for name, l := range map[string]*Logger{"stderr": std, "nop": Nop(), "nil": nilLogger} {
		if err := l.Close(); err != nil {
			t.Errorf("%s: expected nil from Close, got %v", name, err)
		}
	}
	if _, err := os.Stderr.Stat(); err != nil {
		t.Errorf("Expected stderr to stay open: %v", err)
	}
}

func TestLoggerContext(t *testing.T) {
	l := Nop()
	ctx := l.WithContext(context.Background())
	if FromContext(ctx) != l {
		t.Error("Expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("Expected fallback logger")
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics("formfield")
	m.ObserveEvent("email", "blur", "invalid-format")
	m.ObserveEvent("email", "blur", "valid")
	m.ObserveFailure("unknown_field")
	m.ObserveMount()
	m.ObserveMount()
	m.ObserveUnmount()

	if got := testutil.ToFloat64(m.events.WithLabelValues("email", "blur")); got != 2 {
		t.Errorf("Expected 2 blur events, got %v", got)
	}
	if got := testutil.ToFloat64(m.validations.WithLabelValues("email", "valid")); got != 1 {
		t.Errorf("Expected 1 valid status, got %v", got)
	}
	if got := testutil.ToFloat64(m.mounts); got != 2 {
		t.Errorf("Expected 2 mounts, got %v", got)
	}
	if got := testutil.ToFloat64(m.unmounts); got != 1 {
		t.Errorf("Expected 1 unmount, got %v", got)
	}

	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP formfield_dispatch_errors_total Events rejected before reaching a field
# TYPE formfield_dispatch_errors_total counter
formfield_dispatch_errors_total{reason="unknown_field"} 1
`), "formfield_dispatch_errors_total"); err != nil {
		t.Error(err)
	}
}
