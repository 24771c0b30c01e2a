package controllers

import (
	"errors"
	"net/http"

	"github.com/sofrapos/sofra/app/services"
	"github.com/sofrapos/sofra/pkg/bind"
	"github.com/sofrapos/sofra/pkg/logger"
	"github.com/sofrapos/sofra/pkg/response"
	"github.com/sofrapos/sofra/pkg/token"
)

// AuthController exposes login, profile, and logout.
type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Login handles POST /api/auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if len(errs) > 0 {
		response.ValidationError(w, errs)
		return
	}

	result, err := c.auth.Login(in.Email, in.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		logger.WithCtx(r.Context()).Error("login failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	response.Success(w, result)
}

// Profile handles GET /api/auth/profile. Runs behind the auth middleware, so
// claims are always present.
func (c *AuthController) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := token.FromCtx(r.Context())
	if !ok {
		response.Unauthorized(w)
		return
	}

	profile, err := c.auth.Profile(claims.UserID)
	if err != nil {
		logger.WithCtx(r.Context()).Error("profile fetch failed", "error", err, "user_id", claims.UserID)
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	response.Success(w, profile)
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this just
// acknowledges; terminals clear their session store on their side.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"message": "Logged out"})
}
