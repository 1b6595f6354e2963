package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"eventreg_app/internal/services"
)

// CustomErrorHandler maps domain errors to JSON responses: validation
// failures to 400, missing entities to 404, echo HTTP errors as-is, anything
// else to a 500 without leaking internals.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"

	var ve *services.ValidationError
	var nfe *services.NotFoundError
	var he *echo.HTTPError

	switch {
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		message = ve.Message
	case errors.As(err, &nfe):
		code = http.StatusNotFound
		message = nfe.Error()
	case errors.As(err, &he):
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(code); err != nil {
			c.Logger().Error(err)
		}
		return
	}

	if err := c.JSON(code, map[string]string{"error": message}); err != nil {
		c.Logger().Error(err)
	}
}
