package templ

import (
	"context"

	"github.com/a-h/templ"
)

// Classes are the semantic style hooks emitted by the field components.
// Styling itself is left to the host page.
type Classes struct {
	Container       string `yaml:"container"`
	Label           string `yaml:"label"`
	InputContainer  string `yaml:"input_container"`
	Input           string `yaml:"input"`
	InputError      string `yaml:"input_error"`
	Message         string `yaml:"message"`
	Error           string `yaml:"error"`
	EndContent      string `yaml:"end_content"`
	IconPlaceholder string `yaml:"icon_placeholder"`
}

// DefaultClasses returns the built-in class names.
func DefaultClasses() Classes {
	return Classes{
		Container:       "form-field",
		Label:           "form-field-label",
		InputContainer:  "form-field-input",
		Input:           "input",
		InputError:      "input-error",
		Message:         "form-field-message",
		Error:           "form-field-error",
		EndContent:      "form-field-end",
		IconPlaceholder: "icon-placeholder",
	}
}

// Merge fills empty names in c from defaults.
func (c Classes) Merge(defaults Classes) Classes {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&c.Container, defaults.Container)
	fill(&c.Label, defaults.Label)
	fill(&c.InputContainer, defaults.InputContainer)
	fill(&c.Input, defaults.Input)
	fill(&c.InputError, defaults.InputError)
	fill(&c.Message, defaults.Message)
	fill(&c.Error, defaults.Error)
	fill(&c.EndContent, defaults.EndContent)
	fill(&c.IconPlaceholder, defaults.IconPlaceholder)
	return c
}

// InputClass returns the class list of a control.
func (c Classes) InputClass(hasError bool) string {
	return templ.Classes(c.Input, templ.KV(c.InputError, hasError && c.InputError != "")).String()
}

// ErrorClass returns the class list of the error paragraph, which also
// carries the message class.
func (c Classes) ErrorClass() string {
	return templ.Classes(c.Message, c.Error).String()
}

type classesKey struct{}

// WithClasses installs class overrides for every component rendered with ctx.
func WithClasses(ctx context.Context, c Classes) context.Context {
	return context.WithValue(ctx, classesKey{}, c.Merge(DefaultClasses()))
}

// ClassesFrom returns the classes installed in ctx, or the defaults.
func ClassesFrom(ctx context.Context) Classes {
	if c, ok := ctx.Value(classesKey{}).(Classes); ok {
		return c
	}
	return DefaultClasses()
}
