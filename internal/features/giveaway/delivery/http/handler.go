package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/middleware"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/permissions"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
	giveawayservice "github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/service"
)

// envelope is the action-discriminated request body of the giveaway surface.
type envelope struct {
	Action string `json:"action" binding:"required"`

	// create
	RoomID          string `json:"room_id"`
	Title           string `json:"title"`
	TotalAmount     int64  `json:"total_amount"`
	WinnersCount    int    `json:"winners_count"`
	DurationMinutes int    `json:"duration_minutes"`

	// join / complete / cancel / get
	GiveawayID   string `json:"giveaway_id"`
	CaptchaToken string `json:"captcha_token"`
}

type GiveawayHandler struct {
	service giveawayservice.GiveawayService
	sweeper giveawayservice.Sweeper
}

func NewGiveawayHandler(service giveawayservice.GiveawayService, sweeper giveawayservice.Sweeper) *GiveawayHandler {
	return &GiveawayHandler{service: service, sweeper: sweeper}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/giveaways", h.dispatch)
	router.POST("/sweep", h.sweep)
}

func (h *GiveawayHandler) dispatch(c *gin.Context) {
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
	meta := giveawayservice.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	switch req.Action {
	case "create":
		input := &models.CreateRequest{
			RoomID:          req.RoomID,
			Title:           req.Title,
			TotalAmount:     req.TotalAmount,
			WinnersCount:    req.WinnersCount,
			DurationMinutes: req.DurationMinutes,
		}
		result, err := h.service.Create(c.Request.Context(), caller, input, meta)
		respond(c, result, err)

	case "join":
		input := &models.JoinRequest{
			GiveawayID:   req.GiveawayID,
			CaptchaToken: req.CaptchaToken,
		}
		result, err := h.service.Join(c.Request.Context(), caller, input, meta)
		respond(c, result, err)

	case "complete":
		result, err := h.service.Complete(c.Request.Context(), caller, req.GiveawayID, meta)
		respond(c, result, err)

	case "cancel":
		err := h.service.Cancel(c.Request.Context(), caller, req.GiveawayID, meta)
		respond(c, gin.H{"giveaway_id": req.GiveawayID, "status": "cancelled"}, err)

	case "get":
		result, err := h.service.Get(c.Request.Context(), req.GiveawayID)
		respond(c, result, err)

	case "audit":
		entries, err := h.service.AuditTrail(c.Request.Context(), caller, req.GiveawayID)
		respond(c, gin.H{"entries": entries}, err)

	default:
		middleware.SendError(c, apperrors.NewValidationError("action", "unknown action"))
	}
}

func (h *GiveawayHandler) sweep(c *gin.Context) {
	caller := middleware.Profile(c)
	if !permissions.Can(caller, permissions.CapTriggerSweep) {
		var userID int64
		if caller != nil {
			userID = caller.ID
		}
		middleware.SendError(c, apperrors.NewPermissionError(string(permissions.CapTriggerSweep)).WithUserID(userID))
		return
	}

	outcomes := h.sweeper.Sweep(c.Request.Context())
	respond(c, gin.H{"outcomes": outcomes}, nil)
}

func respond(c *gin.Context, result interface{}, err error) {
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}
