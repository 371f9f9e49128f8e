package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/config"
	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/model"
	"github.com/iliyamo/placement-portal/internal/service"
	"github.com/iliyamo/placement-portal/internal/session"
	"github.com/iliyamo/placement-portal/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Identity *service.IdentityService
	Sessions session.Store
}

func NewAuthHandler(cfg config.Config, identity *service.IdentityService, sessions session.Store) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Identity: identity, Sessions: sessions}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"` // student | company
	ProfileForm
}

type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
	AdminKey string `json:"admin_key" form:"admin_key"`
}

type forgotReq struct {
	Email string `json:"email" form:"email"`
}

type resetReq struct {
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm_password" form:"confirm_password"`
}

type changePasswordReq struct {
	Current string `json:"current_password" form:"current_password"`
	New     string `json:"new_password" form:"new_password"`
	Confirm string `json:"confirm_password" form:"confirm_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	User     *model.User `json:"user"`
	Access   tokenPart   `json:"access"`
	Redirect string      `json:"redirect"`
}

// Register creates a student or company account.  The caller signs in
// separately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	// the account name is carried separately
	req.ProfileForm.Name = nil

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Identity.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Profile:  req.ProfileForm.input(),
	})
	if err != nil {
		return fail(c, err, "registration failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": u, "redirect": "/auth/login"})
}

// LoginPage describes the login form.  A caller that is already signed
// in is sent to its dashboard.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	if id, ok := middleware.IdentityFrom(c); ok {
		if middleware.WantsHTML(c) {
			return c.Redirect(http.StatusFound, dashboardPath(id.Role))
		}
		return c.JSON(http.StatusOK, echo.Map{"user": middleware.UserFrom(c), "redirect": dashboardPath(id.Role)})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"roles":                []model.Role{model.RoleStudent, model.RoleCompany, model.RoleAdmin},
		"admin_key_role":       model.RoleAdmin,
		"forgot_password_path": "/auth/forgot-password",
	})
}

// Login verifies credentials for the chosen role, starts a session and
// also returns an access token for API clients.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	u, err := h.Identity.Authenticate(ctx, service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		AdminKey: req.AdminKey,
	})
	if err != nil {
		return fail(c, err, "login failed")
	}

	// a fresh session replaces whatever the browser carried
	if old := middleware.SessionFrom(c); old != nil {
		_ = h.Sessions.Delete(ctx, old.ID)
	}
	sess := session.New(model.Identity{UserID: u.ID, Role: u.Role})
	if err := h.Sessions.Save(ctx, sess); err != nil {
		return fail(c, err, "start session failed")
	}
	middleware.SetSessionCookie(c, sess.ID, h.Cfg.SessionTTL, h.Cfg.IsProd())

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), h.Cfg.AccessTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		User:     u,
		Access:   tokenPart{Token: access.Token, Expires: access.Exp},
		Redirect: dashboardPath(u.Role),
	})
}

// Logout destroys the session, if any.  Access tokens simply expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	if sess := middleware.SessionFrom(c); sess != nil {
		ctx, cancel := opContext(c)
		defer cancel()
		if err := h.Sessions.Delete(ctx, sess.ID); err != nil {
			c.Logger().Warnf("auth: delete session: %v", err)
		}
	}
	middleware.ClearSessionCookie(c)
	if middleware.WantsHTML(c) {
		return c.Redirect(http.StatusFound, "/auth/login")
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword mails a reset link to the account's address.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.Identity.RequestPasswordReset(ctx, req.Email); err != nil {
		return fail(c, err, "password reset failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset link sent to your email"})
}

// ResetPasswordPage checks the token before the new password form is shown.
func (h *AuthHandler) ResetPasswordPage(c echo.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.Identity.ValidateResetToken(ctx, c.Param("token")); err != nil {
		return fail(c, err, "reset check failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true})
}

// ResetPassword consumes the token and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Confirm != "" && req.Confirm != req.Password {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords do not match"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.Identity.CompleteReset(ctx, c.Param("token"), req.Password); err != nil {
		return fail(c, err, "password reset failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated, please sign in", "redirect": "/auth/login"})
}

// ChangePassword updates the password of the acting account.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Confirm != "" && req.Confirm != req.New {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords do not match"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	if err := h.Identity.ChangePassword(ctx, actor(c).UserID, req.Current, req.New); err != nil {
		return fail(c, err, "change password failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// Me returns the acting account and, while impersonating, who is behind it.
func (h *AuthHandler) Me(c echo.Context) error {
	resp := echo.Map{"user": middleware.UserFrom(c), "impersonating": false}
	if sess := middleware.SessionFrom(c); sess.Impersonating() {
		orig, _ := sess.Original()
		resp["impersonating"] = true
		resp["impersonator_id"] = orig.UserID
	}
	return c.JSON(http.StatusOK, resp)
}
