package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/attendance"
)

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=admin teacher student"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin teacher student"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, users, "")
}

func (h *Handler) getUser(c *gin.Context) {
	id := c.Param("id")
	if me := principal(c); !isStaff(me) && me.UserID != id {
		fail(c, http.StatusForbidden, "insufficient role")
		return
	}
	u, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, u, "")
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return
	}
	u, err := h.svc.CreateUser(c.Request.Context(), attendance.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     attendance.Role(req.Role),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, u, "User created")
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return
	}
	in := attendance.UpdateUser{Name: req.Name, Email: req.Email, Password: req.Password}
	if req.Role != nil {
		role := attendance.Role(*req.Role)
		in.Role = &role
	}
	u, err := h.svc.UpdateUser(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, u, "User updated")
}

func (h *Handler) deleteUser(c *gin.Context) {
	u, err := h.svc.DeleteUser(c.Request.Context(), principal(c).UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, u, "User deleted")
}
