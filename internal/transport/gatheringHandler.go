package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gathering-app/internal/service"
	"gathering-app/internal/transport/middleware"
)

type GatheringHandler struct {
	gatheringService service.GatheringService
}

func NewGatheringHandler(gatheringService service.GatheringService) *GatheringHandler {
	return &GatheringHandler{gatheringService: gatheringService}
}

func (h *GatheringHandler) CreateGathering(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "unauthorized", Error: "missing identity"})
		return
	}

	var req service.CreateGatheringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Error: err.Error()})
		return
	}

	gathering, err := h.gatheringService.CreateGathering(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gathering)
}

func (h *GatheringHandler) GetGathering(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Error: "invalid gathering id"})
		return
	}

	gathering, err := h.gatheringService.GetGathering(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gathering)
}

func (h *GatheringHandler) GetUpcomingGatherings(c *gin.Context) {
	gatherings, err := h.gatheringService.GetUpcomingGatherings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gatherings": gatherings, "count": len(gatherings)})
}

func (h *GatheringHandler) GetMyGatherings(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "unauthorized", Error: "missing identity"})
		return
	}

	gatherings, err := h.gatheringService.GetMyGatherings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gatherings": gatherings, "count": len(gatherings)})
}

func (h *GatheringHandler) CancelGathering(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "unauthorized", Error: "missing identity"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Error: "invalid gathering id"})
		return
	}

	if err := h.gatheringService.CancelGathering(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "gathering cancelled"})
}

func (h *GatheringHandler) DeleteGathering(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "unauthorized", Error: "missing identity"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Error: "invalid gathering id"})
		return
	}

	if err := h.gatheringService.DeleteGathering(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "gathering deleted"})
}
