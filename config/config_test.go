package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aydenstechdungeon/formfield/component"
	"github.com/aydenstechdungeon/formfield/field"
	"github.com/google/go-cmp/cmp"
)

const sampleYAML = `
addr: ":8080"
store:
  backend: redis
  redis_addr: "localhost:6379"
  codec: json
  ttl: 10m
classes:
  input: "input input-bordered"
forms:
  - name: signup
    fields:
      - name: email
        kind: email
      - name: name
        kind: text
        label: Full Name
        required: true
      - name: password
        kind: password
        end_content: '<span class="eye">o</span>'
`

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "formfield.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), *cfg); diff != "" {
		t.Errorf("Expected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr != ":8080" || cfg.Store.Backend != "redis" || cfg.Store.TTL != 10*time.Minute || cfg.Store.Codec != "json" {
		t.Errorf("Unexpected values: %+v", cfg.Store)
	}
	if cfg.Store.Prefix != "formfield:" || !cfg.Transport.WebSocket {
		t.Error("Expected defaults to survive for unset keys")
	}
	if cfg.Classes.Input != "input input-bordered" {
		t.Errorf("Expected class override, got %q", cfg.Classes.Input)
	}

	defs := cfg.FormDefs()
	if len(defs) != 1 || len(defs[0].Fields) != 3 {
		t.Fatalf("Unexpected forms: %+v", defs)
	}
	name := defs[0].Fields[1]
	if name.Kind != field.KindText || name.Label == nil || *name.Label != "Full Name" || name.Required == nil || !*name.Required {
		t.Errorf("Unexpected field spec: %+v", name)
	}
	defs[0].Fields[0].Name = "changed"
	if cfg.Forms[0].Fields[0].Name != "email" {
		t.Error("FormDefs must return copies")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FORMFIELD_ADDR", ":9999")
	t.Setenv("FORMFIELD_STORE", "memory")
	t.Setenv("FORMFIELD_LOG_LEVEL", "debug")

	cfg, err := Load(writeFile(t, t.TempDir(), sampleYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Store.Backend != "memory" || cfg.Logging.Level != "debug" {
		t.Errorf("Expected env overrides, got addr=%s backend=%s level=%s", cfg.Addr, cfg.Store.Backend, cfg.Logging.Level)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad backend", "store:\n  backend: etcd\n"},
		{"redis without addr", "store:\n  backend: redis\n"},
		{"bad codec", "store:\n  backend: memory\n  codec: gob\n"},
		{"unknown kind", "forms:\n  - name: f\n    fields:\n      - name: a\n        kind: date\n"},
		{"duplicate field", "forms:\n  - name: f\n    fields:\n      - {name: a, kind: text}\n      - {name: a, kind: email}\n"},
		{"duplicate form", "forms:\n  - {name: f, fields: [{name: a, kind: text}]}\n  - {name: f, fields: [{name: b, kind: text}]}\n"},
		{"bad yaml", "addr: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, t.TempDir(), tt.body)); err == nil {
				t.Error("Expected Load to fail")
			}
		})
	}

	_, err := Load(writeFile(t, t.TempDir(), "forms:\n  - {name: f, fields: [{name: a, kind: text}, {name: a, kind: text}]}\n"))
	if !errors.Is(err, component.ErrInvalidForm) {
		t.Errorf("Expected ErrInvalidForm, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for a missing file")
	}
}

func TestWatchReloads(t *testing.T) {
	old := ReloadDelay
	ReloadDelay = 10 * time.Millisecond
	defer func() { ReloadDelay = old }()

	dir := t.TempDir()
	path := writeFile(t, dir, "addr: \":1\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, nil, func(c *Config) { reloaded <- c }) }()

	// give the watcher time to register before writing
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Addr != ":2" {
				t.Errorf("Expected reloaded addr :2, got %s", cfg.Addr)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-tick.C:
			writeFile(t, dir, "addr: \":2\"\n")
		case <-deadline:
			t.Fatal("Timed out waiting for reload")
		}
	}
}
