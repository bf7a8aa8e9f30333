package fiber

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	gofiber "github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Config holds the middleware configuration shared by the transports.
type Config struct {
	// SessionCookie names the cookie carrying the session id.
	SessionCookie string
	// SessionKey is the Locals key the session id is stored under.
	SessionKey string
	// SessionTTL is the cookie lifetime.
	SessionTTL time.Duration
	// DevMode enables development features
	DevMode bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		SessionCookie: "formfield_session",
		SessionKey:    "formfield.session",
		SessionTTL:    24 * time.Hour,
	}
}

// SessionMiddleware issues a session cookie when the request carries none
// and stores the session id in Locals.
func SessionMiddleware(config Config) gofiber.Handler {
	return func(c *gofiber.Ctx) error {
		id := c.Cookies(config.SessionCookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&gofiber.Cookie{
				Name:     config.SessionCookie,
				Value:    id,
				Path:     "/",
				HTTPOnly: true,
				SameSite: "Lax",
				Secure:   c.Protocol() == "https",
				Expires:  time.Now().Add(config.SessionTTL),
			})
		}
		c.Locals(config.SessionKey, id)
		return c.Next()
	}
}

// SessionID returns the session id stored by SessionMiddleware.
func SessionID(c *gofiber.Ctx, config Config) string {
	id, _ := c.Locals(config.SessionKey).(string)
	return id
}

// RuntimeMiddlewareWithContent serves a runtime script uncompressed. The
// script URL is expected to carry a content hash, so it is cached for good.
func RuntimeMiddlewareWithContent(runtimeContent []byte) gofiber.Handler {
	return func(c *gofiber.Ctx) error {
		c.Set("Content-Type", "application/javascript")
		c.Set("Cache-Control", "public, max-age=31536000, immutable")
		return c.Send(runtimeContent)
	}
}

// CSRFSetTokenMiddleware issues the CSRF cookie on safe HTTP methods.
// Use it alongside CSRFTokenMiddleware: the setter plants the token on GETs,
// the validator checks it on event posts.
func CSRFSetTokenMiddleware() gofiber.Handler {
	return func(c *gofiber.Ctx) error {
		if c.Method() != gofiber.MethodGet && c.Method() != gofiber.MethodHead {
			return c.Next()
		}
		if c.Cookies("csrf_token") == "" {
			token, err := generateCSRFToken()
			if err != nil {
				return c.Next()
			}
			c.Cookie(&gofiber.Cookie{
				Name:     "csrf_token",
				Value:    token,
				Path:     "/",
				HTTPOnly: false, // read by the runtime for the X-CSRF-Token header
				SameSite: "Strict",
				Secure:   c.Protocol() == "https",
			})
		}
		return c.Next()
	}
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CSRFTokenMiddleware validates CSRF tokens on mutating requests.
func CSRFTokenMiddleware() gofiber.Handler {
	return func(c *gofiber.Ctx) error {
		switch c.Method() {
		case gofiber.MethodGet, gofiber.MethodHead, gofiber.MethodOptions:
			return c.Next()
		}
		token := c.Get("X-CSRF-Token")
		cookie := c.Cookies("csrf_token")
		if token == "" || cookie == "" || token != cookie {
			return NewAppError(ErrorCodeForbidden, "CSRF token mismatch", gofiber.StatusForbidden)
		}
		return c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers.
func SecurityHeadersMiddleware() gofiber.Handler {
	return func(c *gofiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}
