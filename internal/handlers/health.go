package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /healthz"
		if err := db.Ping(c.Request.Context()); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	}
}
