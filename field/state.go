package field

import (
	"fmt"

	"github.com/aydenstechdungeon/formfield/state"
)

// Options configure a State. Nil callbacks default to Nop and a nil
// Validate defaults to AlwaysValid.
type Options struct {
	OnChange   Handler
	OnBlur     Handler
	Validate   Validator
	IsRequired bool
}

// Status is the position of a field in its validation state machine.
type Status string

const (
	StatusEmpty           Status = "empty"
	StatusValid           Status = "valid"
	StatusInvalidRequired Status = "invalid-required"
	StatusInvalidFormat   Status = "invalid-format"
)

// Snapshot is the persisted form of a State.
type Snapshot struct {
	Value   string `json:"value" msgpack:"value"`
	Error   string `json:"error" msgpack:"error"`
	Message string `json:"message" msgpack:"message"`
}

// State owns the value, error and message of one field.
//
// Handlers of a single State must not run concurrently; callers serialize
// events per field.
type State struct {
	value   *state.Rune[string]
	err     *state.Rune[string]
	message *state.Rune[string]

	onChange Handler
	onBlur   Handler
	validate Validator
	required bool
}

// New creates an empty field state.
func New(opts Options) *State {
	s := &State{
		value:    state.NewRune(""),
		err:      state.NewRune(""),
		message:  state.NewRune(""),
		onChange: orNop(opts.OnChange),
		onBlur:   orNop(opts.OnBlur),
		validate: opts.Validate,
		required: opts.IsRequired,
	}
	if s.validate == nil {
		s.validate = AlwaysValid
	}
	return s
}

// Value returns the current value.
func (s *State) Value() string { return s.value.Get() }

// Error returns the current error text.
func (s *State) Error() string { return s.err.Get() }

// Message returns the current informational text.
func (s *State) Message() string { return s.message.Get() }

// IsRequired reports whether empty values produce the required notice.
func (s *State) IsRequired() bool { return s.required }

// SetError implements Reporter.
func (s *State) SetError(msg string) { s.err.Set(msg) }

// SetMessage implements Reporter.
func (s *State) SetMessage(msg string) { s.message.Set(msg) }

// HandleChange records the new value. Without a prior error both channels
// are cleared; with one, the value is re-validated immediately so a
// correction clears the error before blur.
func (s *State) HandleChange(ev ChangeEvent) {
	s.value.Set(ev.Value)
	if s.err.Get() == "" {
		s.reset()
	} else {
		s.message.Set("")
		s.runValidation(ev.Value)
	}
	s.onChange(ev)
}

// HandleBlur clears both channels and validates the event's value.
func (s *State) HandleBlur(ev ChangeEvent) {
	s.reset()
	s.runValidation(ev.Value)
	s.onBlur(ev)
}

// Handle routes ev by its native type.
func (s *State) Handle(ev ChangeEvent) error {
	switch ev.NativeEvent.Type {
	case EventChange:
		s.HandleChange(ev)
	case EventBlur:
		s.HandleBlur(ev)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.NativeEvent.Type)
	}
	return nil
}

func (s *State) reset() {
	s.err.Set("")
	s.message.Set("")
}

// runValidation applies the required check, then the validator.
// Missing required input goes to the message channel, malformed input to
// the error channel.
func (s *State) runValidation(value string) {
	if s.required && value == "" {
		s.message.Set(RequiredMessage)
		s.err.Set("")
		return
	}
	if res := s.validate(value, s); !res.IsValid {
		return
	}
	s.err.Set("")
}

// Status classifies the current (value, error, message) tuple.
func (s *State) Status() Status {
	switch {
	case s.err.Get() != "":
		return StatusInvalidFormat
	case s.required && s.value.Get() == "" && s.message.Get() == RequiredMessage:
		return StatusInvalidRequired
	case s.value.Get() == "":
		return StatusEmpty
	default:
		return StatusValid
	}
}

// Snapshot captures the three channels.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Value: s.Value(), Error: s.Error(), Message: s.Message()}
}

// Restore overwrites the three channels without running handlers.
func (s *State) Restore(snap Snapshot) {
	s.value.Set(snap.Value)
	s.err.Set(snap.Error)
	s.message.Set(snap.Message)
}

// Subscribe calls fn with a fresh snapshot whenever any channel changes.
func (s *State) Subscribe(fn func(Snapshot)) state.Unsubscribe {
	notify := func(string) { fn(s.Snapshot()) }
	unsubs := []state.Unsubscribe{
		s.value.Subscribe(notify),
		s.err.Subscribe(notify),
		s.message.Subscribe(notify),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
