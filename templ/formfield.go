package templ

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// FormField decorates a control with a label, an optional trailing slot and
// the message and error paragraphs. Message and error render independently;
// both appear when both are set.
type FormField struct {
	// Name marks the container with data-field so the runtime can swap it.
	Name       string
	Label      string
	Field      templ.Component
	Message    string
	Error      string
	EndContent templ.Component
}

// Render implements templ.Component.
func (f FormField) Render(ctx context.Context, w io.Writer) error {
	c := ClassesFrom(ctx)

	var children []templ.Component
	if f.Label != "" {
		children = append(children, element("label", templ.Attributes{"class": c.Label}, text(f.Label)))
	}

	var inner []templ.Component
	if f.EndContent != nil {
		inner = append(inner, element("div", templ.Attributes{"class": c.EndContent}, f.EndContent))
	}
	inner = append(inner, f.Field)
	children = append(children, element("div", templ.Attributes{"class": c.InputContainer}, inner...))

	if f.Message != "" {
		children = append(children, element("p", templ.Attributes{"class": c.Message}, text(f.Message)))
	}
	if f.Error != "" {
		children = append(children, element("p", templ.Attributes{"class": c.ErrorClass()}, text(f.Error)))
	}

	attrs := templ.Attributes{"class": c.Container}
	if f.Name != "" {
		attrs["data-field"] = f.Name
	}
	return element("div", attrs, children...).Render(ctx, w)
}

// IconPlaceholder is the decorative trailing slot of password fields.
func IconPlaceholder() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return element("div", templ.Attributes{"class": ClassesFrom(ctx).IconPlaceholder}).Render(ctx, w)
	})
}

// RawHTML renders trusted markup as-is. Callers sanitize first.
func RawHTML(html string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html)
		return err
	})
}

// FormElement wraps fields in a <form data-form> element the runtime uses to
// address events.
func FormElement(name, action string, fields ...templ.Component) templ.Component {
	attrs := templ.Attributes{"data-form": name, "method": "post", "novalidate": true}
	if action != "" {
		attrs["action"] = action
	}
	return element("form", attrs, fields...)
}
