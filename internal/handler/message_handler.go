package handler

import (
	"net/http"

	"chatspace/internal/middleware"
	"chatspace/internal/repository"
	"chatspace/internal/service"
	"chatspace/pkg/pagination"
	"chatspace/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	messageService service.MessageService
	users          repository.UserRepository
}

// NewMessageHandler sets up the routing dependencies for Message endpoints
func NewMessageHandler(messageService service.MessageService, users repository.UserRepository) *MessageHandler {
	return &MessageHandler{messageService: messageService, users: users}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *MessageHandler) RegisterRoutes(router *gin.RouterGroup) {
	protected := router.Group("", middleware.RequireAuth())
	{
		protected.GET("/rooms/:slug/messages", h.ListMessages)
		protected.GET("/rooms/:slug/messages/search", h.SearchMessages)
		protected.POST("/rooms/:slug/messages", h.SendMessage)
		protected.GET("/messages/:id", h.GetMessage)
		protected.PUT("/messages/:id", h.UpdateMessage)
		protected.DELETE("/messages/:id", h.DeleteMessage)
	}
}

// ListMessages lists a room's messages with cursor paging
// @Summary      List room messages
// @Description  Returns messages in chronological order; before/after take message ids as cursors
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        slug      path      string  true   "Room slug"
// @Param        before    query     string  false  "Return messages older than this message id"
// @Param        after     query     string  false  "Return messages newer than this message id"
// @Param        per_page  query     int     false  "Window size (max 100)"
// @Success      200       {object}  response.Response{data=[]service.MessageResponse}
// @Failure      403       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/v1/rooms/{slug}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var q service.ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid query: "+err.Error()))
		return
	}

	user := currentUser(c, h.users)
	messages, err := h.messageService.List(c.Request.Context(), user, c.Param("slug"), q)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, messages))
}

// GetMessage shows a single message
// @Summary      Get message
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Message id"
// @Success      200  {object}  response.Response{data=service.MessageResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/v1/messages/{id} [get]
func (h *MessageHandler) GetMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid message id"))
		return
	}

	user := currentUser(c, h.users)
	msg, err := h.messageService.Get(c.Request.Context(), user, messageID)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, msg))
}

// SendMessage posts a message to a room
// @Summary      Send message
// @Description  Requires room access and the send-messages permission; broadcasts to the room channel
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slug     path      string                      true  "Room slug"
// @Param        payload  body      service.SendMessageRequest  true  "Message Payload"
// @Success      201      {object}  response.Response{data=service.MessageResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/v1/rooms/{slug}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user := currentUser(c, h.users)
	if user == nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found"))
		return
	}

	msg, err := h.messageService.Send(c.Request.Context(), user, c.Param("slug"), req)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, msg))
}

// UpdateMessage edits a message (author, or edit-any-message holder)
// @Summary      Update message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Message id"
// @Param        payload  body      service.UpdateMessageRequest  true  "Message Payload"
// @Success      200      {object}  response.Response{data=service.MessageResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/v1/messages/{id} [put]
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid message id"))
		return
	}

	var req service.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user := currentUser(c, h.users)
	msg, err := h.messageService.Update(c.Request.Context(), user, messageID, req)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, msg))
}

// DeleteMessage removes a message (author, or delete-any-message holder)
// @Summary      Delete message
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Message id"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/v1/messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid message id"))
		return
	}

	user := currentUser(c, h.users)
	if err := h.messageService.Delete(c.Request.Context(), user, messageID); err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Message deleted"}))
}

// SearchMessages searches a room's messages by content
// @Summary      Search room messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        slug   path      string  true   "Room slug"
// @Param        q      query     string  true   "Search term"
// @Param        page   query     int     false  "Page number"
// @Param        limit  query     int     false  "Page size"
// @Success      200    {object}  response.Response{data=[]service.MessageResponse}
// @Failure      403    {object}  response.Response
// @Failure      404    {object}  response.Response
// @Router       /api/v1/rooms/{slug}/messages/search [get]
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Search term 'q' is required"))
		return
	}

	params := pagination.Parse(c)
	user := currentUser(c, h.users)

	messages, total, err := h.messageService.Search(c.Request.Context(), user, c.Param("slug"), query, params)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMeta(http.StatusOK, messages, pagination.NewMeta(params, total)))
}
