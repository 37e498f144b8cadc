package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citygridlabs/traffic-twin/internal/sim"
	"github.com/citygridlabs/traffic-twin/internal/sim/state"
	"github.com/citygridlabs/traffic-twin/model"
)

// Vehicles.

type createVehicleRequest struct {
	ID                  string `json:"id" binding:"required"`
	Type                string `json:"type" binding:"required"`
	CurrentRoad         string `json:"currentRoad"`
	CurrentIntersection string `json:"currentIntersection"`
	Speed               int    `json:"speed"`
	Direction           string `json:"direction" binding:"required"`
}

func (s *Server) createVehicle(g *gin.Context) {
	var req createVehicleRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	v, err := s.traffic.CreateVehicle(g.Request.Context(), req.ID,
		model.VehicleType(req.Type), req.CurrentRoad, req.CurrentIntersection,
		req.Speed, model.Direction(req.Direction))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusCreated, v)
}

func (s *Server) readVehicle(g *gin.Context) {
	v, err := s.traffic.ReadVehicle(g.Request.Context(), g.Param("id"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, v)
}

type updatePositionRequest struct {
	NewRoad         string `json:"newRoad" binding:"required"`
	NewIntersection string `json:"newIntersection"`
	NewSpeed        int    `json:"newSpeed"`
	NewDirection    string `json:"newDirection" binding:"required"`
}

func (s *Server) updateVehiclePosition(g *gin.Context) {
	var req updatePositionRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	v, violation, err := s.traffic.UpdateVehiclePosition(g.Request.Context(),
		g.Param("id"), req.NewRoad, req.NewIntersection, req.NewSpeed,
		model.Direction(req.NewDirection))
	if err != nil {
		s.fail(g, err)
		return
	}
	resp := gin.H{"vehicle": v}
	if violation != nil {
		resp["violation"] = violation
	}
	g.JSON(http.StatusOK, resp)
}

func (s *Server) updateVehicleStatus(g *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	v, err := s.traffic.UpdateVehicleStatus(g.Request.Context(), g.Param("id"), model.VehicleStatus(req.Status))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, v)
}

func (s *Server) deleteVehicle(g *gin.Context) {
	if err := s.traffic.DeleteVehicle(g.Request.Context(), g.Param("id")); err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, gin.H{"message": "vehicle deleted"})
}

func (s *Server) listVehicles(g *gin.Context) {
	vs, err := s.traffic.GetAllVehicles(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, vs)
}

func (s *Server) vehiclesByType(g *gin.Context) {
	vs, err := s.traffic.GetVehiclesByType(g.Request.Context(), model.VehicleType(g.Param("type")))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, vs)
}

func (s *Server) vehiclesByRoad(g *gin.Context) {
	vs, err := s.traffic.GetVehiclesByRoad(g.Request.Context(), g.Param("roadId"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, vs)
}

func (s *Server) vehicleHistory(g *gin.Context) {
	h, err := s.traffic.GetVehicleHistory(g.Request.Context(), g.Param("id"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, h)
}

func (s *Server) vehiclePath(g *gin.Context) {
	p, err := s.traffic.GetVehicleMovementPath(g.Request.Context(), g.Param("id"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, p)
}

// Roads.

type createRoadRequest struct {
	ID                string `json:"id" binding:"required"`
	Name              string `json:"name" binding:"required"`
	StartIntersection string `json:"startIntersection" binding:"required"`
	EndIntersection   string `json:"endIntersection" binding:"required"`
	Lanes             int    `json:"lanes"`
	MaxSpeed          int    `json:"maxSpeed"`
	Length            int    `json:"length"`
}

func (s *Server) createRoad(g *gin.Context) {
	var req createRoadRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	r, err := s.traffic.CreateRoad(g.Request.Context(), req.ID, req.Name,
		req.StartIntersection, req.EndIntersection, req.Lanes, req.MaxSpeed, req.Length)
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusCreated, r)
}

func (s *Server) readRoad(g *gin.Context) {
	r, err := s.traffic.ReadRoad(g.Request.Context(), g.Param("id"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, r)
}

func (s *Server) updateRoadStatus(g *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	r, err := s.traffic.UpdateRoadStatus(g.Request.Context(), g.Param("id"), model.RoadStatus(req.Status))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, r)
}

func (s *Server) updateRoadCongestion(g *gin.Context) {
	var req struct {
		Level        string `json:"level" binding:"required"`
		VehicleCount int    `json:"vehicleCount"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	r, err := s.traffic.UpdateRoadCongestion(g.Request.Context(), g.Param("id"),
		model.CongestionLevel(req.Level), req.VehicleCount)
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, r)
}

func (s *Server) updateRoadProperties(g *gin.Context) {
	var req struct {
		Lanes    int `json:"lanes"`
		MaxSpeed int `json:"maxSpeed"`
		Length   int `json:"length"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	r, err := s.traffic.UpdateRoadProperties(g.Request.Context(), g.Param("id"),
		req.Lanes, req.MaxSpeed, req.Length)
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, r)
}

func (s *Server) listRoads(g *gin.Context) {
	rs, err := s.traffic.GetAllRoads(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, rs)
}

func (s *Server) roadsByStatus(g *gin.Context) {
	rs, err := s.traffic.GetRoadsByStatus(g.Request.Context(), model.RoadStatus(g.Param("status")))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, rs)
}

func (s *Server) deleteRoad(g *gin.Context) {
	if err := s.traffic.DeleteRoad(g.Request.Context(), g.Param("id")); err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, gin.H{"message": "road deleted"})
}

// Intersections.

type createIntersectionRequest struct {
	ID             string   `json:"id" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	ConnectedRoads []string `json:"connectedRoads"`
}

func (s *Server) createIntersection(g *gin.Context) {
	var req createIntersectionRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	i, err := s.traffic.CreateIntersection(g.Request.Context(), req.ID, req.Name,
		req.Latitude, req.Longitude, req.ConnectedRoads)
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusCreated, i)
}

func (s *Server) readIntersection(g *gin.Context) {
	i, err := s.traffic.ReadIntersection(g.Request.Context(), g.Param("id"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, i)
}

func (s *Server) updateTrafficLight(g *gin.Context) {
	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	i, err := s.traffic.UpdateTrafficLight(g.Request.Context(), g.Param("id"), model.TrafficLight(req.State))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, i)
}

func (s *Server) updateIntersectionLocation(g *gin.Context) {
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	i, err := s.traffic.UpdateIntersectionLocation(g.Request.Context(), g.Param("id"), req.Latitude, req.Longitude)
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, i)
}

func (s *Server) updateIntersectionDensity(g *gin.Context) {
	var req struct {
		Density string `json:"density" binding:"required"`
	}
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	i, err := s.traffic.UpdateIntersectionDensity(g.Request.Context(), g.Param("id"), model.Density(req.Density))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, i)
}

func (s *Server) listIntersections(g *gin.Context) {
	is, err := s.traffic.GetAllIntersections(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, is)
}

func (s *Server) intersectionsByLight(g *gin.Context) {
	is, err := s.traffic.GetIntersectionsByTrafficLight(g.Request.Context(), model.TrafficLight(g.Param("state")))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, is)
}

func (s *Server) deleteIntersection(g *gin.Context) {
	if err := s.traffic.DeleteIntersection(g.Request.Context(), g.Param("id")); err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, gin.H{"message": "intersection deleted"})
}

// Incidents.

type reportIncidentRequest struct {
	ID          string `json:"id" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Location    string `json:"location"`
	RoadID      string `json:"roadId" binding:"required"`
	Severity    string `json:"severity" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) reportIncident(g *gin.Context) {
	var req reportIncidentRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	inc, err := s.traffic.ReportIncident(g.Request.Context(), req.ID, req.Type,
		req.Location, req.RoadID, model.Severity(req.Severity), req.Description)
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusCreated, inc)
}

func (s *Server) resolveIncident(g *gin.Context) {
	inc, err := s.traffic.ResolveIncident(g.Request.Context(), g.Param("id"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, inc)
}

func (s *Server) listIncidents(g *gin.Context) {
	incs, err := s.traffic.GetAllIncidents(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, incs)
}

func (s *Server) activeIncidents(g *gin.Context) {
	incs, err := s.traffic.GetActiveIncidents(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, incs)
}

func (s *Server) incidentsByRoad(g *gin.Context) {
	incs, err := s.traffic.GetIncidentsByRoad(g.Request.Context(), g.Param("roadId"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, incs)
}

func (s *Server) incidentsBySeverity(g *gin.Context) {
	incs, err := s.traffic.GetIncidentsBySeverity(g.Request.Context(), model.Severity(g.Param("severity")))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, incs)
}

// Violations.

func (s *Server) listViolations(g *gin.Context) {
	vs, err := s.traffic.GetAllViolations(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, vs)
}

func (s *Server) violationsByVehicle(g *gin.Context) {
	vs, err := s.traffic.GetViolationsByVehicle(g.Request.Context(), g.Param("vehicleId"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, vs)
}

func (s *Server) violationsByRoad(g *gin.Context) {
	vs, err := s.traffic.GetViolationsByRoad(g.Request.Context(), g.Param("roadId"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, vs)
}

// Security alerts.

type reportAlertRequest struct {
	ID            string   `json:"id" binding:"required"`
	Source        string   `json:"source"`
	Dataset       string   `json:"dataset"`
	Scenario      string   `json:"scenario"`
	WindowMinutes int      `json:"windowMinutes"`
	EntityType    string   `json:"entityType"`
	EntityID      string   `json:"entityId" binding:"required"`
	Score         float64  `json:"score"`
	Severity      string   `json:"severity"`
	Justification string   `json:"justification"`
	KeyFeatures   []string `json:"keyFeatures"`
}

func (s *Server) reportAlert(g *gin.Context) {
	var req reportAlertRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, err)
		return
	}
	alert, err := s.traffic.ReportSecurityAlert(g.Request.Context(), req.ID, state.AlertReport{
		Source:        req.Source,
		Dataset:       req.Dataset,
		Scenario:      req.Scenario,
		WindowMinutes: req.WindowMinutes,
		EntityType:    model.EntityType(req.EntityType),
		EntityID:      req.EntityID,
		Score:         req.Score,
		Severity:      model.Severity(req.Severity),
		Justification: req.Justification,
		KeyFeatures:   req.KeyFeatures,
	})
	if err != nil {
		s.fail(g, err)
		return
	}
	mitigation := sim.Mitigation{Scheduled: false, Status: "none"}
	if s.mitigator != nil {
		mitigation = s.mitigator.Schedule(alert)
	}
	g.JSON(http.StatusCreated, gin.H{"ok": true, "alert": alert, "mitigation": mitigation})
}

func (s *Server) resolveAlert(g *gin.Context) {
	alert, err := s.traffic.ResolveSecurityAlert(g.Request.Context(), g.Param("id"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, alert)
}

func (s *Server) listAlerts(g *gin.Context) {
	as, err := s.traffic.GetAllSecurityAlerts(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, as)
}

func (s *Server) activeAlerts(g *gin.Context) {
	as, err := s.traffic.GetActiveSecurityAlerts(g.Request.Context())
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, as)
}

func (s *Server) alertsBySeverity(g *gin.Context) {
	as, err := s.traffic.GetSecurityAlertsBySeverity(g.Request.Context(), model.Severity(g.Param("severity")))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, as)
}

func (s *Server) alertsByEntity(g *gin.Context) {
	as, err := s.traffic.GetSecurityAlertsByEntity(g.Request.Context(),
		model.EntityType(g.Param("entityType")), g.Param("entityId"))
	if err != nil {
		s.fail(g, err)
		return
	}
	g.JSON(http.StatusOK, as)
}
