package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/controllers"
	"eld_trip_planner/internal/middleware"
	"eld_trip_planner/internal/planner"
	"eld_trip_planner/internal/store"
)

// Deps is everything the handlers need.
type Deps struct {
	Store    *store.Store
	Pipeline *planner.Pipeline
	Events   *controllers.TripEventHub
}

// SetupRouter wires middleware and every route. The caller runs the server.
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	// Access lines go to the same rotating file as the application log.
	r.Use(ginlog.SetLogger(
		ginlog.WithWriter(logrus.StandardLogger().Out),
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/healthz"}),
	))

	health := &controllers.HealthController{Store: d.Store}
	r.GET("/healthz", health.Health)

	AuthRoutes(r, &controllers.AuthController{Store: d.Store})
	TripRoutes(r, &controllers.TripController{Store: d.Store, Pipeline: d.Pipeline, Events: d.Events})
	if d.Events != nil {
		WebSocketRoutes(r, d.Events)
	}
	return r
}
