package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gathering-app/internal/service"
	"gathering-app/internal/transport/middleware"
)

type BookingHandler struct {
	bookingService service.BookingService
}

func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// bookingParams extracts the gathering ID and caller identity shared
// by every booking endpoint.
func bookingParams(c *gin.Context) (gatheringID, userID uuid.UUID, ok bool) {
	userID, found := middleware.UserID(c)
	if !found {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "unauthorized", Error: "missing identity"})
		return uuid.Nil, uuid.Nil, false
	}

	gatheringID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Error: "invalid gathering id"})
		return uuid.Nil, uuid.Nil, false
	}

	return gatheringID, userID, true
}

func (h *BookingHandler) BookSlot(c *gin.Context) {
	gatheringID, userID, ok := bookingParams(c)
	if !ok {
		return
	}

	result, err := h.bookingService.BookSlot(c.Request.Context(), gatheringID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *BookingHandler) BookSlotForFriend(c *gin.Context) {
	gatheringID, userID, ok := bookingParams(c)
	if !ok {
		return
	}

	var req service.BookForFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Error: err.Error()})
		return
	}

	result, err := h.bookingService.BookSlotForFriend(c.Request.Context(), gatheringID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *BookingHandler) CancelSlot(c *gin.Context) {
	gatheringID, userID, ok := bookingParams(c)
	if !ok {
		return
	}

	if err := h.bookingService.CancelSlot(c.Request.Context(), gatheringID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "slot cancelled"})
}

func (h *BookingHandler) JoinWaitlist(c *gin.Context) {
	gatheringID, userID, ok := bookingParams(c)
	if !ok {
		return
	}

	position, err := h.bookingService.JoinWaitlist(c.Request.Context(), gatheringID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"position": position})
}

func (h *BookingHandler) LeaveWaitlist(c *gin.Context) {
	gatheringID, userID, ok := bookingParams(c)
	if !ok {
		return
	}

	if err := h.bookingService.LeaveWaitlist(c.Request.Context(), gatheringID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left waitlist"})
}
