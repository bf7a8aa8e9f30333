// Package field implements the per-field state manager: value, error and
// message cells driven by change and blur events, with a pluggable validator.
package field

import (
	"errors"
	"fmt"
	"time"
)

// EventType is the kind of native event being normalized.
type EventType string

const (
	EventChange EventType = "change"
	EventBlur   EventType = "blur"
)

// ErrUnknownEvent is returned when an event type is neither change nor blur.
var ErrUnknownEvent = errors.New("unknown field event")

// ParseEventType maps a wire value to an EventType.
// The browser's "input" event is treated as a change.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "change", "input":
		return EventChange, nil
	case "blur", "focusout":
		return EventBlur, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// NativeEvent describes the interaction as it arrived from the client.
type NativeEvent struct {
	Type EventType
	// Transport is "http", "ws" or "direct".
	Transport string
	// Raw holds the undecoded request fields.
	Raw map[string]string
	At  time.Time
}

// ChangeEvent is the normalized shape every handler receives.
type ChangeEvent struct {
	NativeEvent NativeEvent
	FieldName   string
	Value       string
}

// Handler receives normalized change or blur events.
type Handler func(ChangeEvent)

// Nop is the default handler.
func Nop(ChangeEvent) {}

// orNop returns h, or Nop when h is nil.
func orNop(h Handler) Handler {
	if h == nil {
		return Nop
	}
	return h
}

// Chain returns a handler calling each non-nil handler in order.
func Chain(handlers ...Handler) Handler {
	var hs []Handler
	for _, h := range handlers {
		if h != nil {
			hs = append(hs, h)
		}
	}
	if len(hs) == 0 {
		return Nop
	}
	return func(ev ChangeEvent) {
		for _, h := range hs {
			h(ev)
		}
	}
}
