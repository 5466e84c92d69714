package http

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed web/index.html
var indexHTML []byte

// Index serves the single-page chat UI.
func Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}
