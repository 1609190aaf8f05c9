package api

import (
	"net/http"

	"github.com/Domenick1991/flighter/internal/service/destinations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DestinationHandler struct {
	service destinations.DestinationUseCase
	log     *zap.Logger
}

func NewDestinationHandler(service destinations.DestinationUseCase, log *zap.Logger) *DestinationHandler {
	return &DestinationHandler{service: service, log: log.With(zap.String("handler", "destinations"))}
}

func (h *DestinationHandler) Register(router *gin.RouterGroup) {
	router.GET("/destinations", h.search)
}

// search answers an out-of-range query with an empty list rather than 400.
func (h *DestinationHandler) search(c *gin.Context) {
	results, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.log.Error("destination search failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to search destinations")
		return
	}
	c.JSON(http.StatusOK, results)
}
