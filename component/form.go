package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/field"
	formtempl "github.com/aydenstechdungeon/formfield/templ"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrUnknownForm is returned for a form name that was never registered.
	ErrUnknownForm = errors.New("unknown form")
	// ErrUnknownField is returned for a field name the form does not declare.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidForm is returned by Form.Validate.
	ErrInvalidForm = errors.New("invalid form definition")
)

// FieldSpec declares one field of a form.
type FieldSpec struct {
	Name         string     `yaml:"name" validate:"required"`
	Kind         field.Kind `yaml:"kind" validate:"required,oneof=text password email"`
	Label        *string    `yaml:"label,omitempty"`
	Required     *bool      `yaml:"required,omitempty"`
	Uncontrolled *bool      `yaml:"uncontrolled,omitempty"`
	DebounceMS   int        `yaml:"debounce_ms,omitempty" validate:"gte=0,lte=5000"`
	// EndContent is markup for the trailing slot, sanitized before use.
	EndContent string `yaml:"end_content,omitempty"`
}

// Form is a named, ordered set of fields. OnChange and OnBlur receive the
// events of every field; they are code-only and never persisted.
type Form struct {
	Name     string            `yaml:"name" validate:"required"`
	Action   string            `yaml:"action,omitempty"`
	Fields   []FieldSpec       `yaml:"fields" validate:"required,min=1,dive"`
	Classes  formtempl.Classes `yaml:"classes,omitempty"`
	OnChange field.Handler     `yaml:"-"`
	OnBlur   field.Handler     `yaml:"-"`
}

// Validate checks names and kinds.
func (f *Form) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: form name is empty", ErrInvalidForm)
	}
	if strings.ContainsAny(f.Name, ":/") {
		return fmt.Errorf("%w: form name %q contains ':' or '/'", ErrInvalidForm, f.Name)
	}
	if len(f.Fields) == 0 {
		return fmt.Errorf("%w: form %q has no fields", ErrInvalidForm, f.Name)
	}
	seen := make(map[string]bool, len(f.Fields))
	for _, spec := range f.Fields {
		if spec.Name == "" {
			return fmt.Errorf("%w: form %q has a field without a name", ErrInvalidForm, f.Name)
		}
		if seen[spec.Name] {
			return fmt.Errorf("%w: form %q declares field %q twice", ErrInvalidForm, f.Name, spec.Name)
		}
		seen[spec.Name] = true
		if _, err := field.ParseKind(string(spec.Kind)); err != nil {
			return fmt.Errorf("%w: form %q field %q: %v", ErrInvalidForm, f.Name, spec.Name, err)
		}
	}
	return nil
}

// Spec returns the declaration of the named field.
func (f *Form) Spec(name string) (FieldSpec, bool) {
	for _, spec := range f.Fields {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Binding builds a fresh binding for spec with the form's callbacks attached.
func (f *Form) Binding(spec FieldSpec) *Binding {
	preset, _ := field.Lookup(spec.Kind)

	opts := []Option{WithName(spec.Name), WithOnChange(f.OnChange), WithOnBlur(f.OnBlur)}
	if spec.Label != nil {
		opts = append(opts, WithLabel(*spec.Label))
	}
	if spec.Required != nil {
		opts = append(opts, WithRequired(*spec.Required))
	}
	if spec.Uncontrolled != nil {
		opts = append(opts, WithUncontrolled(*spec.Uncontrolled))
	}
	if spec.DebounceMS > 0 {
		opts = append(opts, WithDebounce(spec.DebounceMS))
	}
	if html := SanitizeEndContent(spec.EndContent); html != "" {
		opts = append(opts, WithEndContent(formtempl.RawHTML(html)))
	}

	// passwords stay uncontrolled unless the field says otherwise
	return NewBinding(preset, preset.Kind == field.KindPassword, opts...)
}

var (
	endContentPolicyOnce sync.Once
	endContentPolicy     *bluemonday.Policy
)

// SanitizeEndContent strips everything but simple inline markup and SVG
// icons from configured end content.
func SanitizeEndContent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	endContentPolicyOnce.Do(func() {
		p := bluemonday.StrictPolicy()
		p.AllowElements("span", "i", "b", "svg", "path", "g", "circle", "rect")
		p.AllowAttrs("class").Globally()
		p.AllowAttrs("xmlns", "viewBox", "width", "height", "fill", "stroke", "aria-hidden").OnElements("svg")
		p.AllowAttrs("d", "fill", "stroke", "stroke-width").OnElements("path")
		p.AllowAttrs("cx", "cy", "r", "fill").OnElements("circle")
		p.AllowAttrs("x", "y", "width", "height", "rx", "fill").OnElements("rect")
		endContentPolicy = p
	})
	return strings.TrimSpace(endContentPolicy.Sanitize(raw))
}

// Instance is a form mounted for one session.
type Instance struct {
	Form      *Form
	SessionID string
	bindings  map[string]*Binding
}

func newInstance(form *Form, sessionID string) *Instance {
	inst := &Instance{
		Form:      form,
		SessionID: sessionID,
		bindings:  make(map[string]*Binding, len(form.Fields)),
	}
	for _, spec := range form.Fields {
		inst.bindings[spec.Name] = form.Binding(spec)
	}
	return inst
}

// Binding returns the named field binding.
func (i *Instance) Binding(name string) (*Binding, bool) {
	b, ok := i.bindings[name]
	return b, ok
}

// Snapshots captures every field in the instance.
func (i *Instance) Snapshots() map[string]field.Snapshot {
	out := make(map[string]field.Snapshot, len(i.bindings))
	for name, b := range i.bindings {
		out[name] = b.State().Snapshot()
	}
	return out
}

// restore applies stored snapshots; fields no longer declared are ignored.
func (i *Instance) restore(snaps map[string]field.Snapshot) {
	for name, snap := range snaps {
		if b, ok := i.bindings[name]; ok {
			b.State().Restore(snap)
		}
	}
}

// Render writes the form element with every field in declaration order.
func (i *Instance) Render(ctx context.Context, w io.Writer) error {
	ctx = i.withClasses(ctx)
	fields := make([]templ.Component, 0, len(i.Form.Fields))
	for _, spec := range i.Form.Fields {
		fields = append(fields, i.bindings[spec.Name])
	}
	return formtempl.FormElement(i.Form.Name, i.Form.Action, fields...).Render(ctx, w)
}

// FieldComponent renders a single field the way Render would.
func (i *Instance) FieldComponent(name string) (templ.Component, bool) {
	b, ok := i.bindings[name]
	if !ok {
		return nil, false
	}
	f := b.Field()
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return f.Render(i.withClasses(ctx), w)
	}), true
}

// withClasses layers the form's class overrides over those in ctx.
func (i *Instance) withClasses(ctx context.Context) context.Context {
	if i.Form.Classes == (formtempl.Classes{}) {
		return ctx
	}
	return formtempl.WithClasses(ctx, i.Form.Classes.Merge(formtempl.ClassesFrom(ctx)))
}
