package middleware

// identity.go holds the context keys Authenticate fills and the accessors
// handlers use to read them.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/placement-portal/internal/model"
    "github.com/iliyamo/placement-portal/internal/session"
)

const (
    ctxIdentity = "identity"
    ctxUser     = "user"
    ctxSession  = "session"
)

func setIdentity(c echo.Context, id model.Identity, u *model.User) {
    c.Set(ctxIdentity, id)
    c.Set(ctxUser, u)
    // kept for handlers and logs that only need the raw values
    c.Set("user_id", id.UserID)
    c.Set("role", string(id.Role))
}

// IdentityFrom returns the identity the request acts as.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
    id, ok := c.Get(ctxIdentity).(model.Identity)
    return id, ok
}

// UserFrom returns the account loaded for this request.
func UserFrom(c echo.Context) *model.User {
    u, _ := c.Get(ctxUser).(*model.User)
    return u
}

// SessionFrom returns the cookie session, or nil for token callers.
func SessionFrom(c echo.Context) *session.Session {
    s, _ := c.Get(ctxSession).(*session.Session)
    return s
}

// userID renders the caller for rate limit keys; "anon" when unknown.
func userID(c echo.Context) string {
    if id, ok := IdentityFrom(c); ok {
        return strconv.FormatUint(id.UserID, 10)
    }
    return "anon"
}
