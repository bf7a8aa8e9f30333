package field

import "strings"

const (
	// RequiredMessage is written to the message channel when a required
	// field is left empty.
	RequiredMessage = "This field is required"

	// InvalidEmailFormat is written to the error channel by ValidateEmail.
	InvalidEmailFormat = "Invalid format (ex@email.co)"
)

// ValidationResult is returned by a Validator.
type ValidationResult struct {
	IsValid bool
}

// Valid and Invalid are the two possible results.
var (
	Valid   = ValidationResult{IsValid: true}
	Invalid = ValidationResult{IsValid: false}
)

// Reporter lets a validator write to the field's channels.
// A validator reporting Invalid is expected to have set the error itself.
type Reporter interface {
	SetError(string)
	SetMessage(string)
}

// Validator checks a value. Failures are reported through r as a side effect.
type Validator func(value string, r Reporter) ValidationResult

// AlwaysValid is the default validator.
func AlwaysValid(string, Reporter) ValidationResult {
	return Valid
}

// ValidateEmail is a syntactic sanity check, not RFC 5322.
// Only the first two "@" segments and the first two "." segments of the
// domain are inspected.
func ValidateEmail(value string, r Reporter) ValidationResult {
	if !emailShapeOK(value) {
		r.SetError(InvalidEmailFormat)
		return Invalid
	}
	return Valid
}

func emailShapeOK(value string) bool {
	parts := strings.Split(value, "@")
	if len(parts) == 1 || parts[0] == "" || parts[1] == "" {
		return false
	}
	domain := strings.Split(parts[1], ".")
	if len(domain) == 1 || domain[0] == "" || domain[1] == "" {
		return false
	}
	return true
}
