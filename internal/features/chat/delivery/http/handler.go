package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/middleware"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/chat/models"
	chatservice "github.com/Haiikyu/reveelbox-sub002/internal/features/chat/service"
)

type envelope struct {
	Action string `json:"action" binding:"required"`

	// send
	RoomID      string `json:"room_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`

	// get_messages
	Limit int `json:"limit"`
}

type ChatHandler struct {
	service chatservice.ChatService
}

func NewChatHandler(service chatservice.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/chat", h.dispatch)
}

func (h *ChatHandler) dispatch(c *gin.Context) {
	var req envelope
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Malformed request body"))
		return
	}

	caller := middleware.Profile(c)
	if caller == nil {
		middleware.SendError(c, apperrors.NewUnauthorizedError("caller not resolved"))
		return
	}

	switch req.Action {
	case "send":
		input := &models.SendRequest{
			RoomID:      req.RoomID,
			Content:     req.Content,
			MessageType: models.MessageType(req.MessageType),
		}
		result, err := h.service.Send(c.Request.Context(), caller, input)
		respond(c, result, err)

	case "get_messages":
		result, err := h.service.Get(c.Request.Context(), req.RoomID, req.Limit)
		respond(c, gin.H{"messages": result}, err)

	default:
		middleware.SendError(c, apperrors.NewValidationError("action", "unknown action"))
	}
}

func respond(c *gin.Context, result interface{}, err error) {
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}
