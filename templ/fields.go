package templ

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/field"
)

// FieldProps are the public props of the typed field components.
type FieldProps struct {
	Label        string
	Name         string
	Value        string
	Error        string
	Message      string
	Uncontrolled bool
	// Debounce delays change events on the client, in milliseconds.
	Debounce int
	OnChange field.Handler
	OnBlur   field.Handler
	// EndContent replaces the preset's trailing slot when set.
	EndContent templ.Component
}

// DefaultFieldProps returns the props a preset's component starts from.
func DefaultFieldProps(p field.Preset) FieldProps {
	return FieldProps{
		Label:        p.Label,
		Uncontrolled: p.Uncontrolled,
		OnChange:     field.Nop,
		OnBlur:       field.Nop,
	}
}

// Field is a decorated control built from a preset.
type Field struct {
	Preset field.Preset
	Props  FieldProps
}

// Input returns the control primitive of the field.
func (f Field) Input() Input {
	var attrs templ.Attributes
	if f.Props.Debounce > 0 {
		attrs = Debounced(f.Props.Debounce)
	}
	return Input{
		Type:         f.Preset.InputType,
		Name:         f.Props.Name,
		Value:        f.Props.Value,
		Error:        f.Props.Error,
		Uncontrolled: f.Props.Uncontrolled,
		OnChange:     f.Props.OnChange,
		OnBlur:       f.Props.OnBlur,
		Attributes:   attrs,
	}
}

func (f Field) endContent() templ.Component {
	if f.Props.EndContent != nil {
		return f.Props.EndContent
	}
	if f.Preset.EndContent {
		return IconPlaceholder()
	}
	return nil
}

// Render implements templ.Component.
func (f Field) Render(ctx context.Context, w io.Writer) error {
	return FormField{
		Name:       f.Props.Name,
		Label:      f.Props.Label,
		Message:    f.Props.Message,
		Error:      f.Props.Error,
		Field:      f.Input(),
		EndContent: f.endContent(),
	}.Render(ctx, w)
}

// TextInput renders a text field.
func TextInput(props FieldProps) Field {
	return Field{Preset: field.TextPreset, Props: props}
}

// PasswordInput renders a password field with the decorative trailing slot.
func PasswordInput(props FieldProps) Field {
	return Field{Preset: field.PasswordPreset, Props: props}
}

// EmailInput renders an email field. Format checking lives in the state
// manager, not here.
func EmailInput(props FieldProps) Field {
	return Field{Preset: field.EmailPreset, Props: props}
}
