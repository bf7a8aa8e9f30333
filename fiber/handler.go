package fiber

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/field"
	gofiber "github.com/gofiber/fiber/v2"
)

// Dispatcher routes a field event and returns the re-rendered field.
// *component.Registry implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID, form, fieldName string, native field.NativeEvent, value string) (templ.Component, error)
}

// HeaderOrigin names the tab that sent an event, so its own broadcast
// render can be told apart from other tabs'.
const HeaderOrigin = "X-Formfield-Origin"

// EventHandler serves POST <prefix>/:form/:field. The body carries the
// event type and the control's value as form fields; the response is the
// field's HTML fragment. When hub is set the fragment also goes to the
// session's websocket clients so other tabs stay in step.
func EventHandler(d Dispatcher, config Config, hub *WSHub) gofiber.Handler {
	return func(c *gofiber.Ctx) error {
		typ, err := field.ParseEventType(c.FormValue("type"))
		if err != nil {
			return err
		}
		value := c.FormValue("value")
		native := field.NativeEvent{
			Type:      typ,
			Transport: "http",
			Raw:       map[string]string{"type": c.FormValue("type"), "value": value},
			At:        time.Now(),
		}

		sessionID := SessionID(c, config)
		comp, err := d.Dispatch(c.UserContext(), sessionID, c.Params("form"), c.Params("field"), native, value)
		if err != nil {
			return WrapError(err).WithDetails(map[string]interface{}{
				"form":  c.Params("form"),
				"field": c.Params("field"),
			})
		}
		var buf bytes.Buffer
		if err := comp.Render(c.UserContext(), &buf); err != nil {
			return err
		}
		if hub != nil {
			seq, _ := strconv.ParseInt(c.FormValue("seq"), 10, 64)
			_ = hub.Broadcast(c.UserContext(), sessionID, WSRender{
				Type:   "render",
				Form:   c.Params("form"),
				Field:  c.Params("field"),
				HTML:   buf.String(),
				Origin: c.Get(HeaderOrigin),
				Seq:    seq,
			})
		}
		c.Set(gofiber.HeaderContentType, gofiber.MIMETextHTMLCharsetUTF8)
		return c.Send(buf.Bytes())
	}
}

// RenderComponent renders comp as the text/html response body.
func RenderComponent(c *gofiber.Ctx, comp templ.Component) error {
	var buf bytes.Buffer
	if err := comp.Render(c.UserContext(), &buf); err != nil {
		return err
	}
	c.Set(gofiber.HeaderContentType, gofiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
