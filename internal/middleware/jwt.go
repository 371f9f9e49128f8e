package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/placement-portal/internal/model"
    "github.com/iliyamo/placement-portal/internal/session"
    "github.com/iliyamo/placement-portal/internal/utils"
)

// SessionCookie names the cookie carrying the opaque session id.
const SessionCookie = "portal_session"

// UserLoader re-reads the account behind a session frame or token.
type UserLoader interface {
    CurrentUser(ctx context.Context, id uint64) (*model.User, error)
}

// AuthConfig wires Authenticate to its collaborators.
type AuthConfig struct {
    Sessions  session.Store
    Users     UserLoader
    JWTSecret string
    // Optional lets anonymous requests through instead of rejecting them.
    Optional bool
}

// Authenticate resolves the caller from the session cookie or, failing
// that, an Authorization: Bearer access token.  The account is loaded
// fresh on every request; a session whose account is gone or deactivated
// is destroyed.  Anonymous browser navigations are redirected to the
// login page and API calls get 401.
func Authenticate(cfg AuthConfig) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()

            if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
                sess, err := cfg.Sessions.Load(ctx, ck.Value)
                switch {
                case err == nil:
                    if id, ok := sess.Current(); ok && signerActive(ctx, cfg.Users, sess) {
                        if u := loadActive(ctx, cfg.Users, id); u != nil {
                            setIdentity(c, id, u)
                            c.Set(ctxSession, sess)
                            return next(c)
                        }
                    }
                    _ = cfg.Sessions.Delete(ctx, sess.ID)
                    ClearSessionCookie(c)
                case errors.Is(err, session.ErrNotFound):
                    ClearSessionCookie(c)
                default:
                    c.Logger().Errorf("auth: session load: %v", err)
                }
            }

            if raw, ok := bearer(c); ok {
                if claims, err := utils.ParseAccessToken(cfg.JWTSecret, raw); err == nil {
                    if role, ok := model.ParseRole(claims.Role); ok {
                        id := model.Identity{UserID: claims.UserID, Role: role}
                        if u := loadActive(ctx, cfg.Users, id); u != nil {
                            setIdentity(c, id, u)
                            return next(c)
                        }
                    }
                }
                if !cfg.Optional {
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
                }
            }

            if cfg.Optional {
                return next(c)
            }
            if WantsHTML(c) {
                return c.Redirect(http.StatusFound, "/auth/login")
            }
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
        }
    }
}

// loadActive returns the account for id when it still exists, is active
// and still has the frame's role.
func loadActive(ctx context.Context, users UserLoader, id model.Identity) *model.User {
    u, err := users.CurrentUser(ctx, id.UserID)
    if err != nil || u == nil || !u.IsActive() || u.Role != id.Role {
        return nil
    }
    return u
}

// signerActive re-checks the account that signed in when the session is
// acting as someone else, so removing that account ends the impersonation.
func signerActive(ctx context.Context, users UserLoader, sess *session.Session) bool {
    if !sess.Impersonating() {
        return true
    }
    orig, ok := sess.Original()
    return ok && loadActive(ctx, users, orig) != nil
}

func bearer(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    return raw, raw != ""
}

// WantsHTML reports whether the client is a browser navigation.
func WantsHTML(c echo.Context) bool {
    return strings.Contains(c.Request().Header.Get("Accept"), "text/html")
}

// SetSessionCookie issues the session cookie.
func SetSessionCookie(c echo.Context, id string, ttl time.Duration, secure bool) {
    c.SetCookie(&http.Cookie{
        Name:     SessionCookie,
        Value:    id,
        Path:     "/",
        MaxAge:   int(ttl / time.Second),
        HttpOnly: true,
        Secure:   secure,
        SameSite: http.SameSiteLaxMode,
    })
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c echo.Context) {
    c.SetCookie(&http.Cookie{
        Name:     SessionCookie,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
    })
}
