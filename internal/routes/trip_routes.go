package routes

import (
	"github.com/gin-gonic/gin"

	"eld_trip_planner/internal/controllers"
	"eld_trip_planner/internal/middleware"
)

func TripRoutes(r *gin.Engine, tc *controllers.TripController) {
	trips := r.Group("/trips", middleware.RequireAuth())
	{
		trips.POST("", tc.CreateTrip)
		trips.GET("", tc.ListTrips)
		trips.GET("/:id", tc.GetTrip)
		trips.GET("/:id/logs/:date", tc.GetLogSheet)
		trips.DELETE("/:id", tc.DeleteTrip)
	}
}
