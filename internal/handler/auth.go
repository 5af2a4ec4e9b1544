package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/lakeview/spot-reservation/internal/config"
    "github.com/lakeview/spot-reservation/internal/utils"
)

// AuthHandler implements the single-operator login.  There is no user
// table: the admin account lives in configuration as an email plus a
// bcrypt password hash, and a successful login yields a short-lived
// HS256 access token for the /v1/admin routes.
type AuthHandler struct {
    Cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg *config.Config) *AuthHandler {
    if cfg == nil {
        panic("nil config passed to NewAuthHandler")
    }
    return &AuthHandler{Cfg: cfg}
}

// Login handles POST /v1/auth/login.  It expects a JSON body with
// "email" and "password" and returns an access token on success.  Both a
// wrong email and a wrong password produce the same 401 so the response
// does not leak which half was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
    var body struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Email == "" || body.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
    }
    if body.Email != h.Cfg.AdminEmail || !utils.VerifyPassword(h.Cfg.AdminPasswordHash, body.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    token, err := utils.NewAccessToken(h.Cfg.JWTSecret, 1, "ADMIN", h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access_token": token.Token,
        "expires_at":   token.Exp,
    })
}
