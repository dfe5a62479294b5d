package server

import "github.com/labstack/echo/v4"

// jsonDefaultBinder treats a request body without a Content-Type as JSON.
// Existing clients send GET bodies without the header.
type jsonDefaultBinder struct {
	echo.DefaultBinder
}

func (b *jsonDefaultBinder) Bind(i any, c echo.Context) error {
	req := c.Request()
	if req.ContentLength != 0 && req.Header.Get(echo.HeaderContentType) == "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return b.DefaultBinder.Bind(i, c)
}
