package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/dto"
	popupapp "hlopg/internal/app/handlers/popup"
	"hlopg/internal/app/queries"
)

// DraftsHandler exposes the booking popup as a server-side draft.
type DraftsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type tierRequest struct {
	Label string `json:"label"`
}

type priceModeRequest struct {
	Mode string `json:"mode"`
}

type moveInRequest struct {
	Date string `json:"date"`
}

type durationRequest struct {
	Value string `json:"value"`
}

type termsRequest struct {
	Accepted bool `json:"accepted"`
}

type imageRequest struct {
	Index *int `json:"index"`
}

func (h DraftsHandler) Open(c *gin.Context) {
	cmd := popupapp.OpenDraftCommand{HostelID: c.Param("id")}
	view, err := commands.Dispatch[popupapp.OpenDraftCommand, *dto.DraftView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h DraftsHandler) Get(c *gin.Context) {
	query := popupapp.GetDraftQuery{DraftID: c.Param("id")}
	view, err := queries.Ask[popupapp.GetDraftQuery, *dto.DraftView](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h DraftsHandler) SelectTier(c *gin.Context) {
	var req tierRequest
	if !bindBody(c, &req) {
		return
	}
	h.update(c, popupapp.UpdateDraftCommand{Op: popupapp.OpSelectTier, Label: req.Label})
}

func (h DraftsHandler) PriceMode(c *gin.Context) {
	var req priceModeRequest
	if !bindBody(c, &req) {
		return
	}
	h.update(c, popupapp.UpdateDraftCommand{Op: popupapp.OpPriceMode, Mode: req.Mode})
}

func (h DraftsHandler) MoveIn(c *gin.Context) {
	var req moveInRequest
	if !bindBody(c, &req) {
		return
	}
	h.update(c, popupapp.UpdateDraftCommand{Op: popupapp.OpMoveIn, Date: req.Date})
}

func (h DraftsHandler) Duration(c *gin.Context) {
	var req durationRequest
	if !bindBody(c, &req) {
		return
	}
	h.update(c, popupapp.UpdateDraftCommand{Op: popupapp.OpDuration, Duration: req.Value})
}

func (h DraftsHandler) Terms(c *gin.Context) {
	var req termsRequest
	if !bindBody(c, &req) {
		return
	}
	h.update(c, popupapp.UpdateDraftCommand{Op: popupapp.OpAcceptTerms, Accepted: req.Accepted})
}

func (h DraftsHandler) NextImage(c *gin.Context) {
	h.update(c, popupapp.UpdateDraftCommand{Op: popupapp.OpNextImage})
}

func (h DraftsHandler) PrevImage(c *gin.Context) {
	h.update(c, popupapp.UpdateDraftCommand{Op: popupapp.OpPrevImage})
}

func (h DraftsHandler) ShowImage(c *gin.Context) {
	var req imageRequest
	if !bindBody(c, &req) {
		return
	}
	if req.Index == nil {
		c.JSON(http.StatusBadRequest, errorBody(c, "index is required"))
		return
	}
	h.update(c, popupapp.UpdateDraftCommand{Op: popupapp.OpShowImage, Index: *req.Index})
}

func (h DraftsHandler) update(c *gin.Context, cmd popupapp.UpdateDraftCommand) {
	cmd.DraftID = c.Param("id")
	view, err := commands.Dispatch[popupapp.UpdateDraftCommand, *dto.DraftView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Continue requires a signed-in student; retries with the same Idempotency-Key
// return the booking created by the first call.
func (h DraftsHandler) Continue(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := popupapp.ContinueDraftCommand{
		DraftID:         c.Param("id"),
		StudentID:       user.ID(),
		Actor:           user.Role(),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[popupapp.ContinueDraftCommand, *popupapp.ContinueDraftResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h DraftsHandler) Close(c *gin.Context) {
	cmd := popupapp.CloseDraftCommand{DraftID: c.Param("id")}
	if _, err := commands.Dispatch[popupapp.CloseDraftCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(c, "invalid request"))
		return false
	}
	return true
}

var _ DraftsHTTP = DraftsHandler{}
