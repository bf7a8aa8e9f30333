package templ

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/a-h/templ"
)

// writeAttrs writes attrs in key order. true booleans render bare, false
// booleans and nil values are dropped, everything else is escaped text.
func writeAttrs(w io.Writer, attrs templ.Attributes) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var err error
		switch v := attrs[k].(type) {
		case nil:
			continue
		case bool:
			if !v {
				continue
			}
			_, err = fmt.Fprintf(w, " %s", templ.EscapeString(k))
		case string:
			_, err = fmt.Fprintf(w, ` %s="%s"`, templ.EscapeString(k), templ.EscapeString(v))
		default:
			_, err = fmt.Fprintf(w, ` %s="%s"`, templ.EscapeString(k), templ.EscapeString(fmt.Sprint(v)))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// element renders <tag attrs>children</tag>.
func element(tag string, attrs templ.Attributes, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<"+tag); err != nil {
			return err
		}
		if err := writeAttrs(w, attrs); err != nil {
			return err
		}
		if _, err := io.WriteString(w, ">"); err != nil {
			return err
		}
		for _, child := range children {
			if child == nil {
				continue
			}
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</"+tag+">")
		return err
	})
}

// text renders escaped text.
func text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}
