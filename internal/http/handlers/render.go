package handlers

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewViews returns the template engine for the admin pages.
func NewViews() *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	// Inject user if present
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	return c.Render(tmpl, data)
}
