package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dorm-electricity/internal/api/models"
	"dorm-electricity/internal/bot"
	"dorm-electricity/internal/model"
)

// EventHandler receives chat gateway webhook events.
type EventHandler struct {
	router *bot.Router
	log    *logrus.Entry
}

func NewEventHandler(router *bot.Router, log *logrus.Logger) *EventHandler {
	return &EventHandler{
		router: router,
		log:    log.WithField("component", "event_handler"),
	}
}

// HandleEvent handles POST /event. The event is acknowledged immediately and
// the command runs in its own goroutine; the reply travels back through the
// chat gateway, not this response.
func (h *EventHandler) HandleEvent(c *gin.Context) {
	var req models.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	// The gateway posts lifecycle and notice events on the same endpoint.
	if req.PostType != "" && req.PostType != "message" {
		c.JSON(http.StatusAccepted, models.EventResponse{Status: "ignored"})
		return
	}

	id, err := identityFromEvent(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	// The request context ends with this response, so the command runs on a
	// fresh one.
	go h.router.Dispatch(context.Background(), id, req.Message)

	c.JSON(http.StatusAccepted, models.EventResponse{Status: "accepted"})
}

func identityFromEvent(req models.EventRequest) (model.Identity, error) {
	if req.MessageType == "group" {
		id := model.GroupIdentity(strconv.FormatInt(req.GroupID, 10))
		return id, requireID(id, req.GroupID, "group_id")
	}
	id := model.UserIdentity(strconv.FormatInt(req.UserID, 10))
	return id, requireID(id, req.UserID, "user_id")
}

func requireID(id model.Identity, raw int64, field string) error {
	if raw <= 0 {
		return &fieldError{field: field}
	}
	return id.Validate()
}

type fieldError struct{ field string }

func (e *fieldError) Error() string { return e.field + " is required" }
