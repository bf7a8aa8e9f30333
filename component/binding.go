// Package component ties field state managers to their rendered components
// and mounts them per session.
package component

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/field"
	formtempl "github.com/aydenstechdungeon/formfield/templ"
)

// Binding pairs a field state manager with the component that renders it.
// It is the Go counterpart of a "use field" hook: read Value and Error, and
// render the Binding wherever the field belongs.
type Binding struct {
	preset field.Preset
	props  formtempl.FieldProps
	state  *field.State
}

// Option configures a Binding.
type Option func(*bindingConfig)

type bindingConfig struct {
	preset   field.Preset
	props    formtempl.FieldProps
	onChange field.Handler
	onBlur   field.Handler
	validate field.Validator
}

// WithLabel overrides the preset label.
func WithLabel(label string) Option {
	return func(c *bindingConfig) { c.props.Label = label }
}

// WithName sets the control name.
func WithName(name string) Option {
	return func(c *bindingConfig) { c.props.Name = name }
}

// WithValue pins the rendered value; it wins over state while non-empty.
func WithValue(value string) Option {
	return func(c *bindingConfig) { c.props.Value = value }
}

// WithError pins the rendered error; it wins over state while non-empty.
func WithError(msg string) Option {
	return func(c *bindingConfig) { c.props.Error = msg }
}

// WithMessage pins the rendered message; it wins over state while non-empty.
func WithMessage(msg string) Option {
	return func(c *bindingConfig) { c.props.Message = msg }
}

// WithUncontrolled sets the rendering mode.
func WithUncontrolled(uncontrolled bool) Option {
	return func(c *bindingConfig) { c.props.Uncontrolled = uncontrolled }
}

// WithDebounce delays client change events by ms milliseconds.
func WithDebounce(ms int) Option {
	return func(c *bindingConfig) { c.props.Debounce = ms }
}

// WithRequired overrides the preset's required-ness.
func WithRequired(required bool) Option {
	return func(c *bindingConfig) { c.preset = c.preset.WithRequired(required) }
}

// WithValidator replaces the preset's validator.
func WithValidator(v field.Validator) Option {
	return func(c *bindingConfig) { c.validate = v }
}

// WithOnChange registers a change callback.
func WithOnChange(h field.Handler) Option {
	return func(c *bindingConfig) { c.onChange = field.Chain(c.onChange, h) }
}

// WithOnBlur registers a blur callback.
func WithOnBlur(h field.Handler) Option {
	return func(c *bindingConfig) { c.onBlur = field.Chain(c.onBlur, h) }
}

// WithEndContent replaces the trailing slot.
func WithEndContent(c templ.Component) Option {
	return func(cfg *bindingConfig) { cfg.props.EndContent = c }
}

// NewBinding builds a Binding for preset. uncontrolled is the mode used
// unless WithUncontrolled says otherwise.
func NewBinding(preset field.Preset, uncontrolled bool, opts ...Option) *Binding {
	cfg := bindingConfig{
		preset: preset,
		props:  formtempl.FieldProps{Label: preset.Label, Uncontrolled: uncontrolled},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	fieldOpts := cfg.preset.Options(cfg.onChange, cfg.onBlur)
	if cfg.validate != nil {
		fieldOpts.Validate = cfg.validate
	}
	return &Binding{
		preset: cfg.preset,
		props:  cfg.props,
		state:  field.New(fieldOpts),
	}
}

// UseTextInput returns a controlled text field binding, optional by default.
func UseTextInput(opts ...Option) *Binding {
	return NewBinding(field.TextPreset, false, opts...)
}

// UsePasswordInput returns an uncontrolled password field binding.
func UsePasswordInput(opts ...Option) *Binding {
	return NewBinding(field.PasswordPreset, true, opts...)
}

// UseEmailInput returns a controlled, required email field binding.
func UseEmailInput(opts ...Option) *Binding {
	return NewBinding(field.EmailPreset, false, opts...)
}

// Value returns the field's current value.
func (b *Binding) Value() string { return b.state.Value() }

// Error returns the field's current error.
func (b *Binding) Error() string { return b.state.Error() }

// Message returns the field's current message.
func (b *Binding) Message() string { return b.state.Message() }

// Name returns the control name.
func (b *Binding) Name() string { return b.props.Name }

// Kind returns the preset kind.
func (b *Binding) Kind() field.Kind { return b.preset.Kind }

// State exposes the underlying manager.
func (b *Binding) State() *field.State { return b.state }

// Field returns the component for the current state. Pinned props win over
// state when non-empty.
func (b *Binding) Field() formtempl.Field {
	props := b.props
	props.Value = firstNonEmpty(b.props.Value, b.state.Value())
	props.Error = firstNonEmpty(b.props.Error, b.state.Error())
	props.Message = firstNonEmpty(b.props.Message, b.state.Message())
	props.OnChange = b.state.HandleChange
	props.OnBlur = b.state.HandleBlur
	return formtempl.Field{Preset: b.preset, Props: props}
}

// Dispatch feeds a native event through the field's control.
func (b *Binding) Dispatch(native field.NativeEvent, value string) error {
	return b.Field().Input().Dispatch(native, value)
}

// Render implements templ.Component.
func (b *Binding) Render(ctx context.Context, w io.Writer) error {
	return b.Field().Render(ctx, w)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
