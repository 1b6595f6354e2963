package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// RequireAuth verifies the caller's Firebase credentials: the session cookie
// issued at login, or a Bearer ID token for API clients. The verified identity
// is stored on the request context for downstream handlers.
func RequireAuth(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authClient == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
			}

			token, err := verifyRequest(c, authClient)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing credentials")
			}

			c.Set("userUID", token.UID)
			if email, ok := token.Claims["email"].(string); ok {
				c.Set("userEmail", email)
			}
			if name, ok := token.Claims["name"].(string); ok {
				c.Set("userName", name)
			}

			return next(c)
		}
	}
}

func verifyRequest(c echo.Context, authClient *auth.Client) (*auth.Token, error) {
	ctx := c.Request().Context()

	if cookie, err := c.Cookie("session"); err == nil && cookie.Value != "" {
		if token, err := authClient.VerifySessionCookie(ctx, cookie.Value); err == nil {
			return token, nil
		}
	}

	authHeader := c.Request().Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" || tokenString == authHeader {
		return nil, echo.ErrUnauthorized
	}
	return authClient.VerifyIDToken(ctx, tokenString)
}
