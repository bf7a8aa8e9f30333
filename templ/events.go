// Package templ renders form fields as templ components.
package templ

import (
	"fmt"

	"github.com/a-h/templ"
)

// Client-side handler names understood by the embedded runtime.
const (
	ChangeHandler = "formfield:change"
	BlurHandler   = "formfield:blur"
)

// On creates an event hook attribute.
// Usage: <input { templ.On("blur", "formfield:blur") } />
func On(event string, handler string) templ.Attributes {
	return templ.Attributes{
		"data-on-" + event: handler,
	}
}

// OnChange creates a change hook. The runtime also fires it for input events.
func OnChange(handler string) templ.Attributes {
	return On("change", handler)
}

// OnBlur creates a blur hook.
func OnBlur(handler string) templ.Attributes {
	return On("blur", handler)
}

// Debounced adds a debounce window, in milliseconds, to change hooks.
func Debounced(ms int) templ.Attributes {
	return templ.Attributes{
		"data-debounce": fmt.Sprintf("%d", ms),
	}
}

// Merge combines attribute sets; later sets win on key collisions.
func Merge(sets ...templ.Attributes) templ.Attributes {
	out := templ.Attributes{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
