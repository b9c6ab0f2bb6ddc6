package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/attendance"
)

type createCheckInRequest struct {
	StudentID string     `json:"studentId"`
	Timestamp *time.Time `json:"timestamp"`
	Notes     *string    `json:"notes"`
}

type updateCheckInRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

type decisionRequest struct {
	CheckInID string  `json:"checkInId" binding:"required"`
	Notes     *string `json:"notes"`
}

func (h *Handler) listCheckIns(c *gin.Context) {
	filter := attendance.CheckInFilter{
		Status:    attendance.Status(c.Query("status")),
		StudentID: c.Query("studentId"),
	}
	if me := principal(c); isStudent(me) {
		filter.StudentID = me.UserID
	}
	list, err := h.svc.ListCheckIns(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list, "")
}

func (h *Handler) getCheckIn(c *gin.Context) {
	ci, err := h.svc.GetCheckIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if me := principal(c); isStudent(me) && ci.StudentID != me.UserID {
		fail(c, http.StatusForbidden, "check-in belongs to another student")
		return
	}
	respond(c, http.StatusOK, ci, "")
}

func (h *Handler) createCheckIn(c *gin.Context) {
	var req createCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return
	}
	me := principal(c)
	if isStudent(me) {
		if req.StudentID != "" && req.StudentID != me.UserID {
			fail(c, http.StatusForbidden, "students can only check in themselves")
			return
		}
		req.StudentID = me.UserID
	}

	in := attendance.NewCheckIn{StudentID: req.StudentID, Notes: req.Notes}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}
	ci, err := h.svc.CreateCheckIn(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, ci, "Check-in recorded")
}

func (h *Handler) updateCheckIn(c *gin.Context) {
	var req updateCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return
	}
	h.transition(c, c.Param("id"), attendance.Status(req.Status), req.Notes)
}

func (h *Handler) approve(c *gin.Context) {
	h.decide(c, attendance.StatusApproved)
}

func (h *Handler) reject(c *gin.Context) {
	h.decide(c, attendance.StatusRejected)
}

func (h *Handler) decide(c *gin.Context, target attendance.Status) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return
	}
	h.transition(c, req.CheckInID, target, req.Notes)
}

func (h *Handler) transition(c *gin.Context, id string, target attendance.Status, notes *string) {
	ci, err := h.svc.Transition(c.Request.Context(), id, target, notes, principal(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	msg := "Check-in approved"
	if ci.Status == attendance.StatusRejected {
		msg = "Check-in rejected"
	}
	respond(c, http.StatusOK, ci, msg)
}

func (h *Handler) deleteCheckIn(c *gin.Context) {
	ci, err := h.svc.DeleteCheckIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, ci, "Check-in deleted")
}
