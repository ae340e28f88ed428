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

type RoomHandler struct {
	roomService service.RoomService
	users       repository.UserRepository
}

// NewRoomHandler sets up the routing dependencies for Room endpoints
func NewRoomHandler(roomService service.RoomService, users repository.UserRepository) *RoomHandler {
	return &RoomHandler{roomService: roomService, users: users}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *RoomHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Listing is public: anonymous callers see only public rooms
	router.GET("/rooms", middleware.OptionalAuth(), h.ListRooms)

	// Static /me prefix instead of /rooms/private: gin rejects static
	// siblings of the :slug wildcard.
	router.GET("/me/rooms/private", middleware.RequireAuth(), h.MyPrivateRooms)

	rooms := router.Group("/rooms", middleware.RequireAuth())
	{
		rooms.POST("", middleware.RequirePermission("create-rooms"), h.CreateRoom)
		rooms.GET("/:slug", h.GetRoom)
		rooms.PUT("/:slug", h.UpdateRoom)
		rooms.DELETE("/:slug", h.DeleteRoom)
		rooms.POST("/:slug/join", h.Join)
		rooms.POST("/:slug/members", h.AddMember)
		rooms.DELETE("/:slug/leave", h.Leave)
		rooms.GET("/:slug/members", h.ListMembers)
	}
}

// ListRooms lists rooms visible to the caller
// @Summary      List rooms
// @Description  Public rooms for everyone; authenticated callers also see rooms they created or joined
// @Tags         rooms
// @Produce      json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  response.Response{data=[]service.RoomResponse}
// @Router       /api/v1/rooms [get]
func (h *RoomHandler) ListRooms(c *gin.Context) {
	params := pagination.Parse(c)

	var userID *uuid.UUID
	if id, ok := currentUserID(c); ok {
		userID = &id
	}

	rooms, total, err := h.roomService.ListRooms(c.Request.Context(), userID, params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMeta(http.StatusOK, rooms, pagination.NewMeta(params, total)))
}

// GetRoom shows a single room by slug
// @Summary      Get room
// @Description  Returns room details when the room access policy allows viewing
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        slug  path      string  true  "Room slug"
// @Success      200   {object}  response.Response{data=service.RoomResponse}
// @Failure      403   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/v1/rooms/{slug} [get]
func (h *RoomHandler) GetRoom(c *gin.Context) {
	user := currentUser(c, h.users)

	room, err := h.roomService.GetRoom(c.Request.Context(), user, c.Param("slug"))
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, room))
}

// CreateRoom creates a new chat room
// @Summary      Create room
// @Description  Creates a room with a generated unique slug; the creator becomes a member
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRoomRequest  true  "Create Room Payload"
// @Success      201      {object}  response.Response{data=service.RoomResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/v1/rooms [post]
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req service.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user := currentUser(c, h.users)
	if user == nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found"))
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), user, req)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, room))
}

// UpdateRoom updates a room (owner only)
// @Summary      Update room
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slug     path      string                     true  "Room slug"
// @Param        payload  body      service.UpdateRoomRequest  true  "Update Room Payload"
// @Success      200      {object}  response.Response{data=service.RoomResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/v1/rooms/{slug} [put]
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	var req service.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user := currentUser(c, h.users)
	room, err := h.roomService.UpdateRoom(c.Request.Context(), user, c.Param("slug"), req)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, room))
}

// DeleteRoom deletes a room (owner only)
// @Summary      Delete room
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        slug  path      string  true  "Room slug"
// @Success      200   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/v1/rooms/{slug} [delete]
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	user := currentUser(c, h.users)
	if err := h.roomService.DeleteRoom(c.Request.Context(), user, c.Param("slug")); err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Room deleted"}))
}

// Join adds the caller to a room
// @Summary      Join room
// @Description  Adds the caller as a member; joining an already-joined room is a no-op
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        slug  path      string  true  "Room slug"
// @Success      200   {object}  response.Response{data=service.JoinResponse}
// @Failure      403   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/v1/rooms/{slug}/join [post]
func (h *RoomHandler) Join(c *gin.Context) {
	user := currentUser(c, h.users)
	if user == nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found"))
		return
	}

	result, err := h.roomService.Join(c.Request.Context(), user, c.Param("slug"))
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AddMember adds another user to a room (creator or master role)
// @Summary      Add room member
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slug     path      string                    true  "Room slug"
// @Param        payload  body      service.AddMemberRequest  true  "Member Payload"
// @Success      201      {object}  response.Response
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/v1/rooms/{slug}/members [post]
func (h *RoomHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	memberID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user id"))
		return
	}

	user := currentUser(c, h.users)
	added, err := h.roomService.AddMember(c.Request.Context(), user, c.Param("slug"), memberID)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	if !added {
		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "User is already a member"}))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{"message": "Member added"}))
}

// Leave removes the caller from a room
// @Summary      Leave room
// @Description  The room's creator cannot leave their own room unless they hold the master role
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        slug  path      string  true  "Room slug"
// @Success      200   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Router       /api/v1/rooms/{slug}/leave [delete]
func (h *RoomHandler) Leave(c *gin.Context) {
	user := currentUser(c, h.users)
	if err := h.roomService.Leave(c.Request.Context(), user, c.Param("slug")); err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Left the room"}))
}

// ListMembers lists a room's members
// @Summary      List room members
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        slug   path      string  true   "Room slug"
// @Param        page   query     int     false  "Page number"
// @Param        limit  query     int     false  "Page size"
// @Success      200    {object}  response.Response{data=[]repository.Member}
// @Failure      403    {object}  response.Response
// @Failure      404    {object}  response.Response
// @Router       /api/v1/rooms/{slug}/members [get]
func (h *RoomHandler) ListMembers(c *gin.Context) {
	params := pagination.Parse(c)
	user := currentUser(c, h.users)

	members, total, err := h.roomService.ListMembers(c.Request.Context(), user, c.Param("slug"), params)
	if err != nil {
		c.JSON(statusFromErr(err), response.Error(statusFromErr(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMeta(http.StatusOK, members, pagination.NewMeta(params, total)))
}

// MyPrivateRooms lists the caller's private rooms
// @Summary      List my private rooms
// @Description  Private rooms the caller created or belongs to
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RoomResponse}
// @Router       /api/v1/me/rooms/private [get]
func (h *RoomHandler) MyPrivateRooms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	rooms, err := h.roomService.MyPrivateRooms(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rooms))
}
