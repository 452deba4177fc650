package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ReadinessDeps interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves /healthz and /readyz for the worker process. Ready
// means the loop is running and the data files are readable.
func (w *Worker) HealthHandler(deps ReadinessDeps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if !w.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if deps != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready", "last_backup": w.Last().Dir})
	})

	return r
}
