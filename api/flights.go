package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/Domenick1991/flighter/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FlightHandler struct {
	service flights.FlightUseCase
	log     *zap.Logger
}

type searchFlightsQuery struct {
	FromID     string `form:"fromId" binding:"required,number"`
	ToID       string `form:"toId" binding:"required,number,nefield=FromID"`
	DepartDate string `form:"departDate"`
}

type flightDetailsQuery struct {
	ScheduleID string `form:"scheduleId" binding:"required,uuid"`
}

type quoteQuery struct {
	ScheduleID       string `form:"scheduleId" binding:"required,uuid"`
	ReturnScheduleID string `form:"returnScheduleId" binding:"omitempty,uuid"`
	Class            string `form:"class" binding:"omitempty,oneof=economy premium-economy business first-class"`
	Adults           int    `form:"adults" binding:"omitempty,min=1,max=9"`
	Children         int    `form:"children" binding:"omitempty,min=0,max=9"`
}

func NewFlightHandler(service flights.FlightUseCase, log *zap.Logger) *FlightHandler {
	return &FlightHandler{service: service, log: log.With(zap.String("handler", "flights"))}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.search)
	router.GET("/details", h.details)
	router.GET("/quote", h.quote)
}

func (h *FlightHandler) search(c *gin.Context) {
	var q searchFlightsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidation(c, http.StatusBadRequest, "Invalid flight search parameters", err)
		return
	}
	fromID, errFrom := strconv.ParseInt(q.FromID, 10, 64)
	toID, errTo := strconv.ParseInt(q.ToID, 10, 64)
	if errFrom != nil || errTo != nil {
		respondError(c, http.StatusBadRequest, "Invalid flight search parameters")
		return
	}

	result, err := h.service.Search(c.Request.Context(), flights.SearchInput{
		FromID:     fromID,
		ToID:       toID,
		DepartDate: q.DepartDate,
	})
	if errors.Is(err, flights.ErrInvalidDate) {
		respondError(c, http.StatusBadRequest, "Invalid departDate value")
		return
	}
	if err != nil {
		h.log.Error("flight search failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to search flights")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlightHandler) details(c *gin.Context) {
	var q flightDetailsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidation(c, http.StatusBadRequest, "Invalid flight details parameters", err)
		return
	}

	flight, err := h.service.Details(c.Request.Context(), uuid.MustParse(q.ScheduleID))
	if errors.Is(err, flights.ErrFlightNotFound) {
		respondError(c, http.StatusNotFound, "Flight not found")
		return
	}
	if err != nil {
		h.log.Error("flight details failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to fetch flight details")
		return
	}
	c.JSON(http.StatusOK, flight)
}

// quote prices an itinerary the way checkout does. Defaults: economy, one
// adult.
func (h *FlightHandler) quote(c *gin.Context) {
	var q quoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidation(c, http.StatusBadRequest, "Invalid quote parameters", err)
		return
	}

	input := flights.QuoteInput{
		DepartureScheduleID: uuid.MustParse(q.ScheduleID),
		Class:               domain.FlightClass(q.Class),
		Adults:              q.Adults,
		Children:            q.Children,
	}
	if input.Class == "" {
		input.Class = domain.FlightClassEconomy
	}
	if input.Adults == 0 {
		input.Adults = 1
	}
	if q.ReturnScheduleID != "" {
		id := uuid.MustParse(q.ReturnScheduleID)
		input.ReturnScheduleID = &id
	}

	breakdown, err := h.service.Quote(c.Request.Context(), input)
	if errors.Is(err, flights.ErrFlightNotFound) {
		respondError(c, http.StatusNotFound, "Flight not found")
		return
	}
	if err != nil {
		h.log.Error("flight quote failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to quote flight")
		return
	}
	c.JSON(http.StatusOK, breakdown)
}
