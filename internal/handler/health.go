package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// Health answers 503 when the database, or Redis when one is configured, is unreachable.
func Health(db Checker, redis Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		dbOK := db != nil && db.Healthy(ctx)
		status := map[string]any{"db": dbOK}
		healthy := dbOK
		if redis != nil {
			redisOK := redis.Healthy(ctx)
			status["redis"] = redisOK
			healthy = healthy && redisOK
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Data: status, Error: "degraded"})
			return
		}
		respond(c, http.StatusOK, status, "ok")
	}
}
