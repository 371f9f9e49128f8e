package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/placement-portal/internal/model"
)

// RequireRole lets the request through only when the identity set by
// Authenticate has one of roles.  It runs before the handler touches
// any store.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := IdentityFrom(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
            }
            if !allowed[id.Role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
            }
            return next(c)
        }
    }
}

// RequireSignedInAs checks the role of the account that signed in,
// ignoring an impersonation frame.  It guards the impersonation controls,
// which stay reachable while acting as someone else.  Token callers have
// no frames, so their own role is checked.
func RequireSignedInAs(role model.Role) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := IdentityFrom(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
            }
            if sess := SessionFrom(c); sess != nil {
                id, _ = sess.Original()
            }
            if id.Role != role {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
            }
            return next(c)
        }
    }
}
