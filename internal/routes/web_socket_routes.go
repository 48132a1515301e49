package routes

import (
	"github.com/gin-gonic/gin"

	"eld_trip_planner/internal/controllers"
)

// WebSocketRoutes authenticates inside the handler since the token rides in the query.
func WebSocketRoutes(r *gin.Engine, hub *controllers.TripEventHub) {
	r.GET("/ws/trips", hub.HandleTripEvents)
}
