package handler

import (
	"net/http"

	"chatspace/internal/middleware"
	"chatspace/internal/repository"
	"chatspace/internal/service"
	"chatspace/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthorizeChannelRequest struct {
	ChannelName string `json:"channel_name" binding:"required"`
}

type ChannelHandler struct {
	channelService service.ChannelService
	users          repository.UserRepository
}

// NewChannelHandler sets up the routing dependencies for channel authorization
func NewChannelHandler(channelService service.ChannelService, users repository.UserRepository) *ChannelHandler {
	return &ChannelHandler{channelService: channelService, users: users}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *ChannelHandler) RegisterRoutes(router *gin.RouterGroup) {
	ws := router.Group("/websocket", middleware.RequireAuth())
	{
		ws.POST("/auth", h.Authorize)
	}
}

// Authorize decides whether the caller may subscribe to a broadcast channel
// @Summary      Authorize channel subscription
// @Description  Room channels (room.{slug}) delegate to the room access policy; user channels (user.{id}) require an id match
// @Tags         websocket
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      AuthorizeChannelRequest  true  "Channel Payload"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/v1/websocket/auth [post]
func (h *ChannelHandler) Authorize(c *gin.Context) {
	var req AuthorizeChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user := currentUser(c, h.users)
	if !h.channelService.Authorize(c.Request.Context(), user, req.ChannelName) {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Channel subscription denied"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"channel": req.ChannelName, "authorized": true}))
}
