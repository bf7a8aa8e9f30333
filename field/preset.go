package field

import (
	"errors"
	"fmt"
)

// Kind names one of the built-in field variants.
type Kind string

const (
	KindText     Kind = "text"
	KindPassword Kind = "password"
	KindEmail    Kind = "email"
)

// InputType is the HTML type attribute of the rendered control.
type InputType string

const (
	InputText     InputType = "text"
	InputPassword InputType = "password"
)

// ErrUnknownKind is returned by ParseKind.
var ErrUnknownKind = errors.New("unknown field kind")

// Preset bundles the defaults of a field variant. Presets are values; the
// With* methods return modified copies.
type Preset struct {
	Kind      Kind
	InputType InputType
	Label     string
	// IsRequired is the default required-ness of the state manager.
	IsRequired bool
	// Uncontrolled is the default rendering mode of the standalone component.
	Uncontrolled bool
	// EndContent enables the decorative trailing slot.
	EndContent bool
	Validate   Validator
}

var (
	TextPreset = Preset{
		Kind:         KindText,
		InputType:    InputText,
		Uncontrolled: true,
	}
	PasswordPreset = Preset{
		Kind:         KindPassword,
		InputType:    InputPassword,
		Label:        "Password",
		Uncontrolled: true,
		EndContent:   true,
	}
	EmailPreset = Preset{
		Kind:         KindEmail,
		InputType:    InputText,
		Label:        "Email",
		IsRequired:   true,
		Uncontrolled: true,
		Validate:     ValidateEmail,
	}
)

// Presets lists the closed set of variants.
func Presets() []Preset {
	return []Preset{TextPreset, PasswordPreset, EmailPreset}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindText, KindPassword, KindEmail:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Lookup returns the preset for kind.
func Lookup(kind Kind) (Preset, bool) {
	for _, p := range Presets() {
		if p.Kind == kind {
			return p, true
		}
	}
	return Preset{}, false
}

// WithRequired returns a copy with IsRequired set.
func (p Preset) WithRequired(required bool) Preset {
	p.IsRequired = required
	return p
}

// WithLabel returns a copy with Label set.
func (p Preset) WithLabel(label string) Preset {
	p.Label = label
	return p
}

// WithUncontrolled returns a copy with Uncontrolled set.
func (p Preset) WithUncontrolled(uncontrolled bool) Preset {
	p.Uncontrolled = uncontrolled
	return p
}

// Options returns state-manager options carrying the preset's validator and
// required-ness.
func (p Preset) Options(onChange, onBlur Handler) Options {
	return Options{
		OnChange:   onChange,
		OnBlur:     onBlur,
		Validate:   p.Validate,
		IsRequired: p.IsRequired,
	}
}

// New creates a State configured by the preset.
func (p Preset) New(onChange, onBlur Handler) *State {
	return New(p.Options(onChange, onBlur))
}
