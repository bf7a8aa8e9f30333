package formfield

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/aydenstechdungeon/formfield/component"
	"github.com/aydenstechdungeon/formfield/fiber"
	"github.com/aydenstechdungeon/formfield/field"
	fiberpkg "github.com/gofiber/fiber/v2"
)

// DemoFormName is the form mounted by the demo page.
const DemoFormName = "demo"

// DemoForm returns the demo page's form: a required email, a text field
// labelled Password left to the browser, a required full name and a
// password field.
func DemoForm() *component.Form {
	password := "Password"
	fullName := "Full Name"
	required := true
	uncontrolled := true
	return &component.Form{
		Name: DemoFormName,
		Fields: []component.FieldSpec{
			{Name: "email", Kind: field.KindEmail},
			{Name: "secret", Kind: field.KindText, Label: &password, Uncontrolled: &uncontrolled},
			{Name: "name", Kind: field.KindText, Label: &fullName, Required: &required},
			{Name: "password", Kind: field.KindPassword},
		},
	}
}

const demoStyles = `body{font-family:system-ui,sans-serif;display:flex;justify-content:center;padding:4rem 1rem}
form{display:flex;flex-direction:column;gap:1rem;width:20rem}
.form-field{display:flex;flex-direction:column;gap:.25rem}
.form-field-input{display:flex;flex-direction:row-reverse;align-items:center;gap:.5rem}
.input{flex:1;padding:.5rem;border:1px solid #bbb;border-radius:4px}
.input-error{border-color:#d33}
.form-field-message{font-size:.8rem;color:#666;margin:0}
.form-field-error{color:#d33}
.icon-placeholder{width:1rem;height:1rem;border-radius:50%;background:#ddd}`

func (a *App) demoPage(c *fiberpkg.Ctx) error {
	form, err := a.Form(c, DemoFormName)
	if err != nil {
		return err
	}
	page := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8"><title>`+
			templ.EscapeString(a.Config.AppName)+`</title><style>`+demoStyles+`</style></head><body>`); err != nil {
			return err
		}
		if err := form.Render(ctx, w); err != nil {
			return err
		}
		if err := a.Scripts().Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
	return fiber.RenderComponent(c, page)
}
