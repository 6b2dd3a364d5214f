package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"hlopg/internal/app/commands"
	"hlopg/internal/app/dto"
	hostelsapp "hlopg/internal/app/handlers/hostels"
	"hlopg/internal/app/queries"
	domainuser "hlopg/internal/domain/user"
)

// HostelsHandler serves the city pages, hostel detail, reviews and food menu.
type HostelsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h HostelsHandler) City(c *gin.Context) {
	query := hostelsapp.CityHostelsQuery{
		City:   c.Param("city"),
		Area:   c.Query("area"),
		Gender: c.Query("gender"),
	}
	result, err := queries.Ask[hostelsapp.CityHostelsQuery, dto.CityHostels](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostelsHandler) Detail(c *gin.Context) {
	query := hostelsapp.HostelDetailQuery{HostelID: c.Param("id")}
	result, err := queries.Ask[hostelsapp.HostelDetailQuery, dto.HostelDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostelsHandler) Reviews(c *gin.Context) {
	query := hostelsapp.ListReviewsQuery{
		HostelID: c.Param("id"),
		Limit:    parseInt(c.Query("limit")),
		Offset:   parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[hostelsapp.ListReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type submitReviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

func (h HostelsHandler) SubmitReview(c *gin.Context) {
	user, ok := requireRole(c, domainuser.RoleStudent)
	if !ok {
		return
	}
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(c, "invalid request"))
		return
	}
	cmd := hostelsapp.SubmitReviewCommand{
		HostelID: c.Param("id"),
		Author:   user.User.Name,
		Rating:   req.Rating,
		Text:     req.Text,
		Actor:    user.Role(),
	}
	review, err := commands.Dispatch[hostelsapp.SubmitReviewCommand, *dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h HostelsHandler) FoodMenu(c *gin.Context) {
	query := hostelsapp.FoodMenuQuery{HostelID: c.Param("id")}
	result, err := queries.Ask[hostelsapp.FoodMenuQuery, dto.FoodMenu](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseInt treats blank or malformed input as zero.
func parseInt(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

var _ HostelsHTTP = HostelsHandler{}
