package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/attendance"
)

func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, st, "")
}

// dailyStats reads the event-fed tally for ?date=YYYY-MM-DD, today by default.
func (h *Handler) dailyStats(c *gin.Context) {
	if h.tally == nil {
		fail(c, http.StatusServiceUnavailable, "daily tally is not configured")
		return
	}
	date := c.Query("date")
	if date == "" {
		date = attendance.DateKey(h.now())
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		fail(c, http.StatusBadRequest, "validation failed: date: must be formatted as YYYY-MM-DD")
		return
	}
	counts, err := h.tally.Day(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, counts, "")
}
