package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	popupapp "hlopg/internal/app/handlers/popup"
	"hlopg/internal/app/middleware"
	authsvc "hlopg/internal/app/services/auth"
	domainauth "hlopg/internal/domain/auth"
	domainbooking "hlopg/internal/domain/booking"
	domainhostels "hlopg/internal/domain/hostels"
	domainpopup "hlopg/internal/domain/popup"
	domainreviews "hlopg/internal/domain/reviews"
	domainuser "hlopg/internal/domain/user"
	"hlopg/internal/infra/obs"
	"hlopg/internal/infra/validation"
)

type errorClass struct {
	status int
	errs   []error
}

var errorClasses = []errorClass{
	{http.StatusNotFound, []error{
		domainhostels.ErrNotFound,
		domainhostels.ErrUnknownCity,
		domainpopup.ErrDraftNotFound,
		domainbooking.ErrBookingNotFound,
		domainauth.ErrChallengeNotFound,
		domainuser.ErrNotFound,
	}},
	{http.StatusBadRequest, []error{
		popupapp.ErrInvalidDate,
		popupapp.ErrUnknownOp,
		domainpopup.ErrInvalidPriceMode,
		domainuser.ErrInvalidRole,
	}},
	{http.StatusUnprocessableEntity, []error{
		domainpopup.ErrUnknownTier,
		domainpopup.ErrMoveInOutsideWindow,
		domainpopup.ErrImageIndex,
		domainpopup.ErrNotReady,
		domainreviews.ErrInvalidRating,
		domainreviews.ErrTextTooLong,
		domainreviews.ErrAuthorMissing,
		domainauth.ErrOTPMismatch,
		domainauth.ErrOTPExpired,
		authsvc.ErrCurrentPassword,
	}},
	{http.StatusUnauthorized, []error{
		authsvc.ErrInvalidCredentials,
		domainauth.ErrSessionNotFound,
	}},
	{http.StatusForbidden, []error{
		middleware.ErrForbidden,
		domainbooking.ErrNotOwner,
		authsvc.ErrNotVerified,
	}},
	{http.StatusConflict, []error{
		domainbooking.ErrInvalidState,
		domainpopup.ErrStateListingDrift,
		domainuser.ErrEmailAlreadyUsed,
		domainuser.ErrPhoneAlreadyUsed,
		authsvc.ErrAlreadyVerified,
		middleware.ErrRequestInFlight,
	}},
	{http.StatusTooManyRequests, []error{
		authsvc.ErrOTPThrottled,
		domainauth.ErrOTPAttempts,
	}},
}

func statusFor(err error) int {
	for _, class := range errorClasses {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				return class.status
			}
		}
	}
	return http.StatusInternalServerError
}

// respondError maps application errors onto HTTP statuses. Validation failures
// carry their per-field reasons; unknown errors are logged and hidden.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var invalid *validation.Error
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, withFields(errorBody(c, "invalid request"), invalid.Fields))
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "route", c.FullPath(), "request_id", obs.RequestIDFromContext(c.Request.Context()), "error", err)
		}
		c.JSON(status, errorBody(c, "internal error"))
		return
	}
	c.JSON(status, errorBody(c, err.Error()))
}

// errorBody is the JSON shape of every failed response.
func errorBody(c *gin.Context, msg string) gin.H {
	body := gin.H{"error": msg}
	if id := obs.RequestIDFromContext(c.Request.Context()); id != "" {
		body["request_id"] = id
	}
	return body
}

func withFields(body gin.H, fields map[string]string) gin.H {
	body["fields"] = fields
	return body
}
