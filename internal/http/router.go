// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trailquest/internal/http/handlers"
	"trailquest/internal/http/middleware"
	"trailquest/internal/infra"
	"trailquest/internal/modules/orientation"
	"trailquest/internal/modules/position"
	"trailquest/internal/modules/waypoint"
)

type RouterDeps struct {
	Verifier  infra.TokenVerifier
	Waypoints *waypoint.Service
	Positions *position.Source
	Reporter  handlers.FixReporter
	Compass   *orientation.Registry
	Logger    *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	waypointHandler := handlers.NewWaypointHandler(deps.Waypoints)
	api.POST("/waypoints", waypointHandler.Save)
	api.GET("/waypoints", waypointHandler.List)
	api.GET("/waypoints/geojson", waypointHandler.Export)
	api.DELETE("/waypoints/:id", waypointHandler.Delete)

	positionHandler := handlers.NewPositionHandler(deps.Positions, deps.Reporter)
	api.PUT("/position", positionHandler.Report)
	api.GET("/position", positionHandler.Current)
	api.PUT("/position/permission", positionHandler.SetPermission)

	compassHandler := handlers.NewCompassHandler(deps.Compass)
	api.POST("/compass", compassHandler.Open)
	api.GET("/compass", compassHandler.Heading)
	api.DELETE("/compass", compassHandler.Close)
	api.POST("/compass/samples", compassHandler.Sample)

	return r
}
