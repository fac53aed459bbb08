package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Health GET /healthz
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "unavailable"
		}
		if dbStatus != "ok" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": dbStatus})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": dbStatus})
	}
}
