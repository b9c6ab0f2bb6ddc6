// Package handler exposes the attendance service over HTTP with gin.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/attendance"
	"schoolattendance/internal/auth"
	"schoolattendance/internal/tally"
)

// TokenConfig controls JWT issuance.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler serves the /api routes.
type Handler struct {
	svc    *attendance.Service
	tally  tally.Tally
	tokens TokenConfig
	log    *slog.Logger
	now    func() time.Time
}

// New creates a handler. t may be nil, in which case the daily stats route reports 503.
func New(svc *attendance.Service, t tally.Tally, tokens TokenConfig, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, tally: t, tokens: tokens, log: log, now: time.Now}
}

// Register mounts the API on r.
func (h *Handler) Register(r gin.IRouter) {
	useJSONFieldNames()

	api := r.Group("/api")
	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)

	staff := auth.RequireRole(string(attendance.RoleAdmin), string(attendance.RoleTeacher))
	admin := auth.RequireRole(string(attendance.RoleAdmin))

	authed := api.Group("", auth.BearerAuth(h.tokens.SigningKey, h.tokens.Issuer))
	authed.GET("/users", staff, h.listUsers)
	authed.POST("/users", admin, h.createUser)
	authed.GET("/users/:id", h.getUser)
	authed.PUT("/users/:id", admin, h.updateUser)
	authed.DELETE("/users/:id", admin, h.deleteUser)

	authed.GET("/checkins", h.listCheckIns)
	authed.POST("/checkins", h.createCheckIn)
	authed.POST("/checkins/approve", staff, h.approve)
	authed.POST("/checkins/reject", staff, h.reject)
	authed.GET("/checkins/:id", h.getCheckIn)
	authed.PUT("/checkins/:id", staff, h.updateCheckIn)
	authed.DELETE("/checkins/:id", admin, h.deleteCheckIn)

	authed.GET("/stats", staff, h.stats)
	authed.GET("/stats/daily", staff, h.dailyStats)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg})
}

// respondError maps service errors onto status codes. Unexpected errors are logged and
// answered with a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *attendance.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, attendance.ErrNotFound):
		fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, attendance.ErrEmailTaken), errors.Is(err, attendance.ErrDuplicateCheckIn):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, attendance.ErrAlreadyProcessed), errors.Is(err, attendance.ErrCannotDeleteSelf):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, err.Error())
	default:
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

func principal(c *gin.Context) auth.Claims {
	claims, _ := auth.ClaimsFrom(c)
	return claims
}

func isStudent(claims auth.Claims) bool {
	return claims.Role == string(attendance.RoleStudent)
}

func isStaff(claims auth.Claims) bool {
	return claims.Role == string(attendance.RoleAdmin) || claims.Role == string(attendance.RoleTeacher)
}
