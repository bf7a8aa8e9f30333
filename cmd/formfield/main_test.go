package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCheckValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formfield.yaml")
	body := "forms:\n  - name: signup\n    fields:\n      - {name: email, kind: email}\n      - {name: password, kind: password}\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCommand(t, "check", path)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	for _, want := range []string{"is valid", "store: memory (msgpack codec, ttl 30m0s)", "form signup: 2 fields", "email (email)", "password (password)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestCheckInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formfield.yaml")
	if err := os.WriteFile(path, []byte("store:\n  backend: etcd\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, errOut, err := runCommand(t, "check", path)
	if err == nil {
		t.Fatal("Expected check to fail")
	}
	if !strings.Contains(errOut, "✗") {
		t.Errorf("Expected an error line, got %q", errOut)
	}
}

func TestCheckRequiresArgument(t *testing.T) {
	if _, _, err := runCommand(t, "check"); err == nil {
		t.Error("Expected an argument error")
	}
}

func TestCheckNoForms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formfield.yaml")
	if err := os.WriteFile(path, []byte("addr: \":4000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCommand(t, "check", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no forms declared") {
		t.Errorf("Expected a warning, got:\n%s", out)
	}
}
