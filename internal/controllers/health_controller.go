package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eld_trip_planner/internal/store"
)

type HealthController struct {
	Store *store.Store
}

// Health answers ok once the database responds.
func (hc *HealthController) Health(c *gin.Context) {
	sqlDB, err := hc.Store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
