package templ

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/field"
)

// Input is the control primitive. It renders a single <input> and turns
// native events into field.ChangeEvent values for its callbacks.
type Input struct {
	// Type is text or password; empty means text.
	Type  field.InputType
	Name  string
	Value string
	// Error switches on the error class when non-empty.
	Error string
	// Uncontrolled leaves the control's text to the browser: no value
	// attribute is rendered, so re-renders never overwrite what was typed.
	Uncontrolled bool
	OnChange     field.Handler
	OnBlur       field.Handler
	// Attributes are extra attributes merged into the tag.
	Attributes templ.Attributes
}

// Dispatch normalizes a native event and calls the matching callback.
func (in Input) Dispatch(native field.NativeEvent, value string) error {
	ev := field.ChangeEvent{
		NativeEvent: native,
		FieldName:   in.Name,
		Value:       value,
	}
	switch native.Type {
	case field.EventChange:
		if in.OnChange != nil {
			in.OnChange(ev)
		}
	case field.EventBlur:
		if in.OnBlur != nil {
			in.OnBlur(ev)
		}
	default:
		return fmt.Errorf("%w: %q", field.ErrUnknownEvent, native.Type)
	}
	return nil
}

// Attrs returns the attributes of the rendered control.
func (in Input) Attrs(c Classes) templ.Attributes {
	typ := in.Type
	if typ == "" {
		typ = field.InputText
	}
	attrs := Merge(
		templ.Attributes{
			"class": c.InputClass(in.Error != ""),
			"type":  string(typ),
			"name":  in.Name,
		},
		OnChange(ChangeHandler),
		OnBlur(BlurHandler),
		in.Attributes,
	)
	if in.Uncontrolled {
		attrs["data-uncontrolled"] = "true"
		delete(attrs, "value")
	} else {
		attrs["value"] = in.Value
	}
	return attrs
}

// Render implements templ.Component.
func (in Input) Render(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w, "<input"); err != nil {
		return err
	}
	if err := writeAttrs(w, in.Attrs(ClassesFrom(ctx))); err != nil {
		return err
	}
	_, err := io.WriteString(w, ">")
	return err
}
