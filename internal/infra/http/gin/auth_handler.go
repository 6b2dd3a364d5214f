package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hlopg/internal/app/dto"
	authsvc "hlopg/internal/app/services/auth"
	domainuser "hlopg/internal/domain/user"
)

type AuthHTTP interface {
	RegisterStudent(c *gin.Context)
	RegisterOwner(c *gin.Context)
	VerifyOTP(c *gin.Context)
	ResendOTP(c *gin.Context)
	LoginStudent(c *gin.Context)
	LoginOwner(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Gender          string `json:"gender"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type verifyOTPRequest struct {
	Identifier string `json:"identifier"`
	OTP        string `json:"otp"`
}

type resendOTPRequest struct {
	Identifier string `json:"identifier"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) RegisterStudent(c *gin.Context) { h.register(c, domainuser.RoleStudent) }
func (h AuthHandler) RegisterOwner(c *gin.Context)   { h.register(c, domainuser.RoleOwner) }
func (h AuthHandler) LoginStudent(c *gin.Context)    { h.login(c, domainuser.RoleStudent) }
func (h AuthHandler) LoginOwner(c *gin.Context)      { h.login(c, domainuser.RoleOwner) }

func (h AuthHandler) register(c *gin.Context, role domainuser.Role) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "auth service unavailable"))
		return
	}
	var req registerRequest
	if !bindBody(c, &req) {
		return
	}
	gender := req.Gender
	if role == domainuser.RoleOwner {
		gender = ""
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams{
		Role:            role,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Gender:          gender,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewRegistrationResponse(result.User, result.Identifier, result.OTPExpiresAt))
}

func (h AuthHandler) VerifyOTP(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "auth service unavailable"))
		return
	}
	var req verifyOTPRequest
	if !bindBody(c, &req) {
		return
	}
	result, err := h.Service.VerifyOTP(c.Request.Context(), req.Identifier, req.OTP)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) ResendOTP(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "auth service unavailable"))
		return
	}
	var req resendOTPRequest
	if !bindBody(c, &req) {
		return
	}
	result, err := h.Service.ResendOTP(c.Request.Context(), req.Identifier)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewRegistrationResponse(result.User, result.Identifier, result.OTPExpiresAt))
}

func (h AuthHandler) login(c *gin.Context, role domainuser.Role) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "auth service unavailable"))
		return
	}
	var req loginRequest
	if !bindBody(c, &req) {
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Role:     role,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "auth service unavailable"))
		return
	}
	if err := h.Service.Logout(c.Request.Context(), bearerTokenFromContext(c)); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("logout failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, errorBody(c, "logout failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(p.User))
}

func bearerTokenFromContext(c *gin.Context) string {
	if p, ok := currentPrincipal(c); ok && p.Token != "" {
		return p.Token
	}
	token, _ := bearerToken(c.Request)
	return token
}

var _ AuthHTTP = AuthHandler{}
