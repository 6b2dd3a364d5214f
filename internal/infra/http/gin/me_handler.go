package ginserver

import (
	"context"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/dto"
	bookingapp "hlopg/internal/app/handlers/booking"
	"hlopg/internal/app/queries"
	authsvc "hlopg/internal/app/services/auth"
	domainuser "hlopg/internal/domain/user"
)

type MeHTTP interface {
	ListBookings(c *gin.Context)
	CancelBooking(c *gin.Context)
	UpdateProfile(c *gin.Context)
	ChangePassword(c *gin.Context)
}

// AccountService edits the signed-in account.
type AccountService interface {
	UpdateProfile(ctx context.Context, id domainuser.ID, params authsvc.ProfileParams) (*domainuser.User, error)
	ChangePassword(ctx context.Context, id domainuser.ID, params authsvc.ChangePasswordParams) (*authsvc.AuthResult, error)
}

type MeHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Accounts AccountService
	Logger   *slog.Logger
}

func (h MeHandler) ListBookings(c *gin.Context) {
	user, ok := requireRole(c, domainuser.RoleStudent)
	if !ok {
		return
	}
	query := bookingapp.ListStudentBookingsQuery{StudentID: user.ID()}
	result, err := queries.Ask[bookingapp.ListStudentBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h MeHandler) CancelBooking(c *gin.Context) {
	user, ok := requireRole(c, domainuser.RoleStudent)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 && !bindBody(c, &req) {
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID: c.Param("id"),
		StudentID: user.ID(),
		Reason:    req.Reason,
		Actor:     user.Role(),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.BookingSummary](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type profileRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Gender string `json:"gender"`
	City   string `json:"city"`
}

func (h MeHandler) UpdateProfile(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Accounts == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "account service unavailable"))
		return
	}
	var req profileRequest
	if !bindBody(c, &req) {
		return
	}
	updated, err := h.Accounts.UpdateProfile(c.Request.Context(), p.User.ID, authsvc.ProfileParams{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Gender: req.Gender,
		City:   req.City,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(updated))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h MeHandler) ChangePassword(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Accounts == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "account service unavailable"))
		return
	}
	var req changePasswordRequest
	if !bindBody(c, &req) {
		return
	}
	result, err := h.Accounts.ChangePassword(c.Request.Context(), p.User.ID, authsvc.ChangePasswordParams{
		Current: req.CurrentPassword,
		New:     req.NewPassword,
		Confirm: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token))
}

var (
	_ MeHTTP         = MeHandler{}
	_ AccountService = (*authsvc.Service)(nil)
)
