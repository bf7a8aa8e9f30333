// Package embed provides the embedded client runtime for form fields.
package embed

import (
	"crypto/sha256"
	"embed"
	"fmt"
)

//go:embed fields.js
var runtimeFS embed.FS

// RuntimeJS returns the client runtime that forwards field events to the
// server and swaps re-rendered fields into the page.
func RuntimeJS() ([]byte, error) {
	return runtimeFS.ReadFile("fields.js")
}

// RuntimeHash returns a truncated SHA256 hash of the runtime JavaScript.
func RuntimeHash() (string, error) {
	content, err := RuntimeJS()
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(content)
	return fmt.Sprintf("%x", h[:8]), nil
}
