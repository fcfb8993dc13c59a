package app

import (
	"net/http"

	"github.com/autumnsgrove/grove-core/internal/middleware"
	"github.com/autumnsgrove/grove-core/internal/modules/summary"
	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(summaryHandler *summary.Handler) {
	api := a.router.Group("/api/v1")

	api.GET("/health", a.health)

	authMW := middleware.TriggerAuth(a.cfg.TriggerToken)
	summaryHandler.RegisterRoutes(api, authMW)

	a.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": 0, "code": http.StatusNotFound, "message": "not found"})
	})
}

// GET /api/v1/health
func (a *App) health(c *gin.Context) {
	status := "ok"
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"env":    a.cfg.Env,
		"jobs":   a.sched.List(),
	})
}
