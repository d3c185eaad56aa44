package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/config"
	"github.com/iliyamo/seat-pos/internal/middleware"
	"github.com/iliyamo/seat-pos/internal/utils"
)

// AuthHandler exchanges a terminal PIN for an access token.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

// ----- DTOs -----

type loginReq struct {
	PIN string `json:"pin"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	Role   string    `json:"role"`
	Access tokenPart `json:"access"`
}

// Login: the owner PIN is checked first, then the staff PIN.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.PIN = strings.TrimSpace(req.PIN)
	if req.PIN == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pin required"})
	}
	if h.Cfg.OwnerPinHash == "" && h.Cfg.StaffPinHash == "" {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "pin login not configured"})
	}

	var role, subject string
	switch {
	case utils.VerifyPIN(h.Cfg.OwnerPinHash, req.PIN):
		role, subject = middleware.RoleOwner, "owner"
	case utils.VerifyPIN(h.Cfg.StaffPinHash, req.PIN):
		role, subject = middleware.RoleStaff, "staff"
	default:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid pin"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, subject, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		Role:   role,
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
