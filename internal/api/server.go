// Package api exposes the twin over REST. Handlers are thin: decode,
// delegate to the state machine or orchestrator, map errors to status
// codes.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/internal/observability"
	"github.com/citygridlabs/traffic-twin/internal/sim"
	"github.com/citygridlabs/traffic-twin/internal/sim/state"
	"github.com/citygridlabs/traffic-twin/ledger"
)

// Server wires the HTTP surface to the state machine, the simulation
// orchestrator and the mitigation worker.
type Server struct {
	traffic   *state.Traffic
	orch      *sim.Orchestrator
	mitigator *sim.Mitigator
	log       logging.Logger

	middleware []gin.HandlerFunc
}

// Option configures a Server.
type Option func(*Server)

// WithMiddleware appends extra router-level middleware, e.g. metrics.
func WithMiddleware(mw ...gin.HandlerFunc) Option {
	return func(s *Server) { s.middleware = append(s.middleware, mw...) }
}

// NewServer constructs the HTTP surface.
func NewServer(traffic *state.Traffic, orch *sim.Orchestrator, mitigator *sim.Mitigator, log logging.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.Noop()
	}
	s := &Server{traffic: traffic, orch: orch, mitigator: mitigator, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), observability.TracingMiddleware())
	r.Use(s.middleware...)

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		simGroup := api.Group("/simulation")
		{
			simGroup.POST("/start", s.simStart)
			simGroup.POST("/pause", s.simPause)
			simGroup.POST("/resume", s.simResume)
			simGroup.POST("/reset", s.simReset)
			simGroup.PUT("/speed", s.simSpeed)
			simGroup.PUT("/spawn-rate", s.simSpawnRate)
			simGroup.GET("/stats", s.simStats)
		}

		api.POST("/init", s.initNetwork)

		vehicles := api.Group("/vehicles")
		{
			vehicles.GET("", s.listVehicles)
			vehicles.POST("", s.createVehicle)
			vehicles.GET("/type/:type", s.vehiclesByType)
			vehicles.GET("/road/:roadId", s.vehiclesByRoad)
			vehicles.GET("/:id", s.readVehicle)
			vehicles.DELETE("/:id", s.deleteVehicle)
			vehicles.PUT("/:id/position", s.updateVehiclePosition)
			vehicles.PUT("/:id/status", s.updateVehicleStatus)
			vehicles.GET("/:id/history", s.vehicleHistory)
			vehicles.GET("/:id/path", s.vehiclePath)
		}

		roads := api.Group("/roads")
		{
			roads.GET("", s.listRoads)
			roads.POST("", s.createRoad)
			roads.GET("/status/:status", s.roadsByStatus)
			roads.GET("/:id", s.readRoad)
			roads.DELETE("/:id", s.deleteRoad)
			roads.PUT("/:id/status", s.updateRoadStatus)
			roads.PUT("/:id/congestion", s.updateRoadCongestion)
			roads.PUT("/:id/properties", s.updateRoadProperties)
		}

		intersections := api.Group("/intersections")
		{
			intersections.GET("", s.listIntersections)
			intersections.POST("", s.createIntersection)
			intersections.GET("/light/:state", s.intersectionsByLight)
			intersections.GET("/:id", s.readIntersection)
			intersections.DELETE("/:id", s.deleteIntersection)
			intersections.PUT("/:id/light", s.updateTrafficLight)
			intersections.PUT("/:id/location", s.updateIntersectionLocation)
			intersections.PUT("/:id/density", s.updateIntersectionDensity)
		}

		incidents := api.Group("/incidents")
		{
			incidents.GET("", s.listIncidents)
			incidents.POST("", s.reportIncident)
			incidents.GET("/active", s.activeIncidents)
			incidents.GET("/road/:roadId", s.incidentsByRoad)
			incidents.GET("/severity/:severity", s.incidentsBySeverity)
			incidents.PUT("/:id/resolve", s.resolveIncident)
		}

		violations := api.Group("/violations")
		{
			violations.GET("", s.listViolations)
			violations.GET("/vehicle/:vehicleId", s.violationsByVehicle)
			violations.GET("/road/:roadId", s.violationsByRoad)
		}

		alerts := api.Group("/security/alerts")
		{
			alerts.GET("", s.listAlerts)
			alerts.POST("", s.reportAlert)
			alerts.GET("/active", s.activeAlerts)
			alerts.GET("/severity/:severity", s.alertsBySeverity)
			alerts.GET("/entity/:entityType/:entityId", s.alertsByEntity)
			alerts.PUT("/:id/resolve", s.resolveAlert)
		}

		api.GET("/statistics", s.statistics)
		api.GET("/statistics/congestion", s.congestionReport)
	}

	return r
}

// requestID tags every request with an id for log correlation.
func (s *Server) requestID() gin.HandlerFunc {
	return func(g *gin.Context) {
		ctx, id := logging.EnsureRequestID(g.Request.Context())
		g.Request = g.Request.WithContext(ctx)
		g.Header("X-Request-Id", id)
		g.Next()
	}
}

func (s *Server) health(g *gin.Context) {
	g.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// httpStatus maps store sentinels onto HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrEndorsement):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(g *gin.Context, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(g.Request.Context(), "request failed",
			logging.String("route", g.FullPath()), logging.Err(err))
	}
	g.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(g *gin.Context, err error) {
	g.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// Simulation lifecycle.

func (s *Server) simStart(g *gin.Context) {
	if err := s.orch.Start(g.Request.Context()); err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, gin.H{"message": "simulation started"})
}

func (s *Server) simPause(g *gin.Context) {
	s.orch.Pause()
	g.JSON(http.StatusOK, gin.H{"message": "simulation paused"})
}

func (s *Server) simResume(g *gin.Context) {
	s.orch.Resume()
	g.JSON(http.StatusOK, gin.H{"message": "simulation resumed"})
}

func (s *Server) simReset(g *gin.Context) {
	if err := s.orch.Reset(g.Request.Context()); err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, gin.H{"message": "simulation reset"})
}

func (s *Server) simSpeed(g *gin.Context) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	if err := s.orch.SetSpeed(req.Speed); err != nil {
		badRequest(g, err)
		return
	}
	g.JSON(http.StatusOK, gin.H{"message": "speed updated", "speed": req.Speed})
}

func (s *Server) simSpawnRate(g *gin.Context) {
	var req struct {
		Rate float64 `json:"rate"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	if err := s.orch.SetSpawnRate(req.Rate); err != nil {
		badRequest(g, err)
		return
	}
	g.JSON(http.StatusOK, gin.H{"message": "spawn rate updated", "rate": req.Rate})
}

func (s *Server) simStats(g *gin.Context) {
	g.JSON(http.StatusOK, s.orch.Stats())
}

func (s *Server) initNetwork(g *gin.Context) {
	sum, err := s.traffic.InitNetwork(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, sum)
}

func (s *Server) statistics(g *gin.Context) {
	stats, err := s.traffic.GetNetworkStatistics(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, stats)
}

func (s *Server) congestionReport(g *gin.Context) {
	report, err := s.traffic.GetRoadCongestionReport(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, report)
}
