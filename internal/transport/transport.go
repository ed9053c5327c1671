package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gathering-app/internal/entity"
	"gathering-app/internal/transport/middleware"
)

func InitRoutes(gatheringHandler *GatheringHandler, bookingHandler *BookingHandler, profileHandler *ProfileHandler) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		gatherings := api.Group("/gatherings")
		{
			gatherings.GET("", gatheringHandler.GetUpcomingGatherings)
			gatherings.GET("/:id", gatheringHandler.GetGathering)

			authed := gatherings.Group("", middleware.Identity())
			{
				authed.POST("", gatheringHandler.CreateGathering)
				authed.GET("/my", gatheringHandler.GetMyGatherings)
				authed.PATCH("/:id/cancel", gatheringHandler.CancelGathering)
				authed.DELETE("/:id", gatheringHandler.DeleteGathering)

				authed.POST("/:id/book", bookingHandler.BookSlot)
				authed.DELETE("/:id/book", bookingHandler.CancelSlot)
				authed.POST("/:id/book-for-friend", bookingHandler.BookSlotForFriend)
				authed.POST("/:id/waitlist", bookingHandler.JoinWaitlist)
				authed.DELETE("/:id/waitlist", bookingHandler.LeaveWaitlist)
			}
		}

		profiles := api.Group("/profiles")
		{
			profiles.POST("/register", profileHandler.RegisterProfile)
			profiles.GET("/:id", profileHandler.GetProfile)
			profiles.POST("/:id/telegram", profileHandler.LinkTelegram)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// ErrorResponse is the error payload shape for every endpoint.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// respondError translates domain errors into stable error codes.
// Unknown errors are reported as internal without leaking details.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	message := err.Error()

	switch {
	case errors.Is(err, entity.ErrGatheringNotFound):
		status, code = http.StatusNotFound, "gathering_not_found"
	case errors.Is(err, entity.ErrGatheringNotAvailable):
		status, code = http.StatusConflict, "gathering_not_available"
	case errors.Is(err, entity.ErrGatheringDatePast):
		status, code = http.StatusBadRequest, "gathering_date_past"
	case errors.Is(err, entity.ErrNotCreator):
		status, code = http.StatusForbidden, "not_creator"
	case errors.Is(err, entity.ErrAlreadyBooked):
		status, code = http.StatusConflict, "already_booked"
	case errors.Is(err, entity.ErrNoSlotsAvailable):
		status, code = http.StatusConflict, "no_slots_available"
	case errors.Is(err, entity.ErrSlotTaken):
		status, code = http.StatusConflict, "slot_taken"
	case errors.Is(err, entity.ErrInvalidSlotNumber):
		status, code = http.StatusBadRequest, "invalid_slot_number"
	case errors.Is(err, entity.ErrAlreadyInWaitlist):
		status, code = http.StatusConflict, "already_in_waitlist"
	case errors.Is(err, entity.ErrAlreadyHasSlot):
		status, code = http.StatusConflict, "already_has_slot"
	case errors.Is(err, entity.ErrNotInWaitlist):
		status, code = http.StatusNotFound, "not_in_waitlist"
	case errors.Is(err, entity.ErrGatheringNotFull):
		status, code = http.StatusConflict, "gathering_not_full"
	case errors.Is(err, entity.ErrProfileNotFound):
		status, code = http.StatusNotFound, "profile_not_found"
	case errors.Is(err, entity.ErrTelegramIDExists):
		status, code = http.StatusConflict, "telegram_id_exists"
	case errors.Is(err, entity.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, entity.ErrConcurrentUpdate):
		status, code = http.StatusConflict, "concurrent_update"
	default:
		message = "internal server error"
	}

	c.JSON(status, ErrorResponse{Code: code, Error: message})
}
