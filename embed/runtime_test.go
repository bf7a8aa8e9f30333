package embed

import (
	"regexp"
	"strings"
	"testing"
)

func TestRuntimeJS(t *testing.T) {
	js, err := RuntimeJS()
	if err != nil {
		t.Fatalf("RuntimeJS failed: %v", err)
	}
	src := string(js)

	// the server echoes origin and seq; the runtime must send both and
	// compare them before swapping a reply in
	for _, want := range []string{
		`"X-Formfield-Origin"`,
		`body.set("seq"`,
		`origin: origin, seq: seq`,
		`seq !== st.seq`,
		`msg.origin === origin`,
		`"X-CSRF-Token"`,
		`data-on-`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("Expected runtime to contain %s", want)
		}
	}
}

func TestRuntimeHash(t *testing.T) {
	h1, err := RuntimeHash()
	if err != nil {
		t.Fatalf("RuntimeHash failed: %v", err)
	}
	h2, _ := RuntimeHash()
	if h1 != h2 {
		t.Errorf("Expected a stable hash, got %s and %s", h1, h2)
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(h1) {
		t.Errorf("Expected 16 hex characters, got %q", h1)
	}
}
