package fiber

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/component"
	"github.com/aydenstechdungeon/formfield/field"
	"github.com/gofiber/fiber/v2"
)

// ErrorCode represents an error code.
type ErrorCode string

const (
	ErrorCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrorCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrorCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrorCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrorCodeUnknownForm  ErrorCode = "UNKNOWN_FORM"
	ErrorCodeUnknownField ErrorCode = "UNKNOWN_FIELD"
	ErrorCodeUnknownEvent ErrorCode = "UNKNOWN_EVENT"
	ErrorCodeUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError represents an application error.
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Stack      string                 `json:"stack,omitempty"`
	StatusCode int                    `json:"-"`
	cause      error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the error the AppError was built from.
func (e *AppError) Unwrap() error { return e.cause }

// NewAppError creates a new application error.
func NewAppError(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithStack adds a stack trace to the error.
func (e *AppError) WithStack(stack string) *AppError {
	e.Stack = stack
	return e
}

// Common errors.
var (
	ErrInternal    = NewAppError(ErrorCodeInternal, "Internal server error", fiber.StatusInternalServerError)
	ErrNotFound    = NewAppError(ErrorCodeNotFound, "Resource not found", fiber.StatusNotFound)
	ErrBadRequest  = NewAppError(ErrorCodeBadRequest, "Bad request", fiber.StatusBadRequest)
	ErrUnavailable = NewAppError(ErrorCodeUnavailable, "Service unavailable", fiber.StatusServiceUnavailable)
)

// WrapError maps err onto an AppError. Form, field and event lookups become
// client errors; everything else is internal.
func WrapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		appErr = NewAppError(ErrorCodeInternal, fe.Message, fe.Code)
		if fe.Code == fiber.StatusNotFound {
			appErr.Code = ErrorCodeNotFound
		} else if fe.Code < fiber.StatusInternalServerError {
			appErr.Code = ErrorCodeBadRequest
		}
	case errors.Is(err, component.ErrUnknownForm):
		appErr = NewAppError(ErrorCodeUnknownForm, err.Error(), fiber.StatusNotFound)
	case errors.Is(err, component.ErrUnknownField):
		appErr = NewAppError(ErrorCodeUnknownField, err.Error(), fiber.StatusNotFound)
	case errors.Is(err, field.ErrUnknownEvent):
		appErr = NewAppError(ErrorCodeUnknownEvent, err.Error(), fiber.StatusBadRequest)
	default:
		appErr = NewAppError(ErrorCodeInternal, "Internal server error", fiber.StatusInternalServerError)
	}
	appErr.cause = err
	return appErr
}

// ErrorHandlerConfig holds error handler configuration.
type ErrorHandlerConfig struct {
	// DevMode exposes internal messages and stack traces.
	DevMode bool
	// OnError is called when an error occurs
	OnError func(*fiber.Ctx, *AppError)
}

// ErrorHandler creates a Fiber error handler. JSON is returned when the
// client asks for it, a small HTML fragment otherwise.
func ErrorHandler(config ErrorHandlerConfig) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := WrapError(err)
		if config.DevMode && appErr.Code == ErrorCodeInternal {
			appErr = NewAppError(appErr.Code, err.Error(), appErr.StatusCode).WithStack(string(debug.Stack()))
			appErr.cause = err
		}

		if config.OnError != nil {
			config.OnError(c, appErr)
		}

		if strings.HasPrefix(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
			return c.Status(appErr.StatusCode).JSON(fiber.Map{
				"error":   appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		html := `<div class="formfield-error" data-code="` + templ.EscapeString(string(appErr.Code)) + `">` +
			templ.EscapeString(appErr.Message) + `</div>`
		if config.DevMode && appErr.Stack != "" {
			html += `<pre class="formfield-stack">` + templ.EscapeString(appErr.Stack) + `</pre>`
		}
		return c.Status(appErr.StatusCode).SendString(html)
	}
}

// PanicHandler recovers panics into the error handler.
func PanicHandler(config ErrorHandlerConfig) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				var perr error
				switch v := r.(type) {
				case error:
					perr = v
				default:
					perr = fmt.Errorf("%v", v)
				}
				err = ErrorHandler(config)(c, perr)
			}
		}()
		return c.Next()
	}
}
