// Package http exposes the giveaway manager over a REST API.
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "giveaway-engine/internal/common/errors"
	"giveaway-engine/internal/common/middleware"
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/giveaway/service"
)

type GiveawayHandler struct {
	manager service.GiveawayManager
}

func NewGiveawayHandler(manager service.GiveawayManager) *GiveawayHandler {
	return &GiveawayHandler{manager: manager}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("", h.start)
		giveaways.GET("", h.list)
		giveaways.GET("/:messageID", h.get)
		giveaways.PATCH("/:messageID", h.edit)
		giveaways.DELETE("/:messageID", h.delete)
		giveaways.POST("/:messageID/end", h.end)
		giveaways.POST("/:messageID/reroll", h.reroll)
		giveaways.POST("/:messageID/pause", h.pause)
		giveaways.POST("/:messageID/unpause", h.unpause)
		giveaways.GET("/:messageID/entries", h.entries)
		giveaways.GET("/:messageID/chance", h.chance)
		giveaways.GET("/:messageID/time-remaining", h.timeRemaining)
	}

	reactions := router.Group("/reactions")
	{
		reactions.POST("/added", h.reactionAdded)
		reactions.POST("/removed", h.reactionRemoved)
	}
}

type startRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	GuildID   string `json:"guild_id"`
	// DurationMS is the countdown length in milliseconds.
	DurationMS  int64  `json:"duration_ms" binding:"required"`
	Prize       string `json:"prize" binding:"required"`
	WinnerCount int    `json:"winner_count" binding:"required"`

	HostedBy string           `json:"hosted_by"`
	Messages *models.Messages `json:"messages"`

	Reaction          string   `json:"reaction"`
	BotsCanWin        *bool    `json:"bots_can_win"`
	ExemptPermissions []string `json:"exempt_permissions"`

	RoleRequirement     []string `json:"role_requirement"`
	JoinedRequirementMS int64    `json:"joined_requirement_ms"`
	AgeRequirementMS    int64    `json:"age_requirement_ms"`
	MessageRequirement  int      `json:"message_requirement"`
	ServerRequirement   []string `json:"server_requirement"`
	BypassRoles         []string `json:"bypass_roles"`

	IsDrop bool `json:"is_drop"`

	EmbedColor    string `json:"embed_color"`
	EmbedColorEnd string `json:"embed_color_end"`
	WinnerRole    string `json:"winner_role"`
}

func (h *GiveawayHandler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	opts := &models.StartOptions{
		Duration:           time.Duration(req.DurationMS) * time.Millisecond,
		Prize:              req.Prize,
		WinnerCount:        req.WinnerCount,
		HostedBy:           req.HostedBy,
		Messages:           req.Messages,
		Reaction:           req.Reaction,
		BotsCanWin:         req.BotsCanWin,
		ExemptPermissions:  req.ExemptPermissions,
		RoleRequirement:    req.RoleRequirement,
		JoinedRequirement:  time.Duration(req.JoinedRequirementMS) * time.Millisecond,
		AgeRequirement:     time.Duration(req.AgeRequirementMS) * time.Millisecond,
		MessageRequirement: req.MessageRequirement,
		ServerRequirement:  req.ServerRequirement,
		BypassRoles:        req.BypassRoles,
		IsDrop:             req.IsDrop,
		EmbedColor:         req.EmbedColor,
		EmbedColorEnd:      req.EmbedColorEnd,
		WinnerRole:         req.WinnerRole,
	}

	entity, err := h.manager.Start(c.Request.Context(), req.ChannelID, req.GuildID, opts)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity.Snapshot())
}

func (h *GiveawayHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.List())
}

func (h *GiveawayHandler) get(c *gin.Context) {
	entity, err := h.manager.Get(c.Param("messageID"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.Snapshot())
}

type editRequest struct {
	NewWinnerCount  *int             `json:"new_winner_count"`
	NewPrize        *string          `json:"new_prize"`
	AddTimeMS       *int64           `json:"add_time_ms"`
	SetEndTimestamp *time.Time       `json:"set_end_timestamp"`
	NewMessages     *models.Messages `json:"new_messages"`
}

func (h *GiveawayHandler) edit(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	opts := &models.EditOptions{
		NewWinnerCount:  req.NewWinnerCount,
		NewPrize:        req.NewPrize,
		SetEndTimestamp: req.SetEndTimestamp,
		NewMessages:     req.NewMessages,
	}
	if req.AddTimeMS != nil {
		delta := time.Duration(*req.AddTimeMS) * time.Millisecond
		opts.AddTime = &delta
	}

	entity, err := h.manager.Edit(c.Request.Context(), c.Param("messageID"), opts)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.Snapshot())
}

func (h *GiveawayHandler) delete(c *gin.Context) {
	keepMessage, _ := strconv.ParseBool(c.DefaultQuery("keep_message", "false"))
	if err := h.manager.Delete(c.Request.Context(), c.Param("messageID"), keepMessage); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GiveawayHandler) end(c *gin.Context) {
	winners, err := h.manager.End(c.Request.Context(), c.Param("messageID"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

type rerollRequest struct {
	WinnerCount int              `json:"winner_count"`
	Messages    *models.Messages `json:"messages"`
}

func (h *GiveawayHandler) reroll(c *gin.Context) {
	var req rerollRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortWithError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
			return
		}
	}

	winners, err := h.manager.Reroll(c.Request.Context(), c.Param("messageID"), &models.RerollOptions{
		WinnerCount: req.WinnerCount,
		Messages:    req.Messages,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

type pauseRequest struct {
	UnpauseAfter *time.Time `json:"unpause_after"`
}

func (h *GiveawayHandler) pause(c *gin.Context) {
	var req pauseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortWithError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
			return
		}
	}

	var unpauseAfter time.Time
	if req.UnpauseAfter != nil {
		unpauseAfter = *req.UnpauseAfter
	}

	entity, err := h.manager.Pause(c.Request.Context(), c.Param("messageID"), unpauseAfter)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.Snapshot())
}

func (h *GiveawayHandler) unpause(c *gin.Context) {
	entity, err := h.manager.Unpause(c.Request.Context(), c.Param("messageID"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.Snapshot())
}

func (h *GiveawayHandler) entries(c *gin.Context) {
	count, err := h.manager.ValidEntryCount(c.Request.Context(), c.Param("messageID"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": count})
}

func (h *GiveawayHandler) chance(c *gin.Context) {
	chance, err := h.manager.WinningChance(c.Request.Context(), c.Param("messageID"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"winning_chance": chance})
}

func (h *GiveawayHandler) timeRemaining(c *gin.Context) {
	text, err := h.manager.TimeRemainingText(c.Param("messageID"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"time_remaining": text})
}

type reactionRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	UserID    string `json:"user_id" binding:"required"`
	Emoji     string `json:"emoji" binding:"required"`
}

func (h *GiveawayHandler) reactionAdded(c *gin.Context) {
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}
	h.manager.HandleReactionAdd(c.Request.Context(), service.ReactionEvent(req))
	c.Status(http.StatusAccepted)
}

func (h *GiveawayHandler) reactionRemoved(c *gin.Context) {
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}
	h.manager.HandleReactionRemove(c.Request.Context(), service.ReactionEvent(req))
	c.Status(http.StatusAccepted)
}
