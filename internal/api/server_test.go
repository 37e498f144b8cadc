package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/internal/sim"
	"github.com/citygridlabs/traffic-twin/internal/sim/state"
	"github.com/citygridlabs/traffic-twin/ledger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := ledger.Open(ledger.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	traffic := state.New(store, logging.Noop())
	orch := sim.New(traffic, logging.Noop())
	t.Cleanup(orch.Stop)
	mit := sim.NewMitigator(traffic, logging.Noop())
	srv := NewServer(traffic, orch, mit, logging.Noop())
	return srv.Router()
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Errorf("missing X-Request-Id header")
	}
}

func TestInitAndListAssets(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/init", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("init status = %d: %s", w.Code, w.Body.String())
	}
	var sum struct {
		Total int `json:"total"`
	}
	decode(t, w, &sum)
	if sum.Total != 16 {
		t.Errorf("total = %d, want 16", sum.Total)
	}

	w = do(t, r, http.MethodGet, "/api/vehicles", nil)
	var vehicles []map[string]any
	decode(t, w, &vehicles)
	if len(vehicles) != 5 {
		t.Errorf("vehicles = %d, want 5", len(vehicles))
	}

	w = do(t, r, http.MethodGet, "/api/roads", nil)
	var roads []map[string]any
	decode(t, w, &roads)
	if len(roads) != 6 {
		t.Errorf("roads = %d, want 6", len(roads))
	}

	w = do(t, r, http.MethodGet, "/api/vehicles/type/emergency", nil)
	var emergency []map[string]any
	decode(t, w, &emergency)
	if len(emergency) != 1 {
		t.Errorf("emergency vehicles = %d, want 1", len(emergency))
	}
}

func TestVehicleCRUDStatusCodes(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/init", nil)

	body := map[string]any{
		"id": "V100", "type": "car", "currentRoad": "R001",
		"currentIntersection": "I001", "speed": 40, "direction": "north",
	}
	if w := do(t, r, http.MethodPost, "/api/vehicles", body); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodPost, "/api/vehicles", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", w.Code)
	}

	bad := map[string]any{
		"id": "V101", "type": "hovercraft", "speed": 40, "direction": "north",
	}
	if w := do(t, r, http.MethodPost, "/api/vehicles", bad); w.Code != http.StatusBadRequest {
		t.Errorf("invalid type status = %d, want 400", w.Code)
	}

	if w := do(t, r, http.MethodGet, "/api/vehicles/NOPE", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing vehicle status = %d, want 404", w.Code)
	}

	if w := do(t, r, http.MethodDelete, "/api/vehicles/V100", nil); w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, "/api/vehicles/V100", nil); w.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", w.Code)
	}
}

func TestUpdatePositionReportsViolation(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/init", nil)

	// R001 allows 60. Moving at 75 must come back with a violation.
	w := do(t, r, http.MethodPut, "/api/vehicles/V001/position", map[string]any{
		"newRoad": "R001", "newIntersection": "I002", "newSpeed": 75, "newDirection": "south",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update position status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Vehicle struct {
			Speed int `json:"speed"`
		} `json:"vehicle"`
		Violation *struct {
			VehicleID  string `json:"vehicleId"`
			SpeedLimit int    `json:"speedLimit"`
		} `json:"violation"`
	}
	decode(t, w, &resp)
	if resp.Vehicle.Speed != 75 {
		t.Errorf("vehicle speed = %d, want 75", resp.Vehicle.Speed)
	}
	if resp.Violation == nil {
		t.Fatalf("expected a violation in the response")
	}
	if resp.Violation.VehicleID != "V001" || resp.Violation.SpeedLimit != 60 {
		t.Errorf("violation = %+v", resp.Violation)
	}

	vw := do(t, r, http.MethodGet, "/api/violations/vehicle/V001", nil)
	var violations []map[string]any
	decode(t, vw, &violations)
	if len(violations) != 1 {
		t.Errorf("recorded violations = %d, want 1", len(violations))
	}

	// Within the limit no violation key is present.
	w = do(t, r, http.MethodPut, "/api/vehicles/V001/position", map[string]any{
		"newRoad": "R001", "newIntersection": "I001", "newSpeed": 60, "newDirection": "north",
	})
	var clean map[string]json.RawMessage
	decode(t, w, &clean)
	if _, ok := clean["violation"]; ok {
		t.Errorf("unexpected violation at the speed limit: %s", w.Body.String())
	}
}

func TestIncidentLifecycle(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/init", nil)

	w := do(t, r, http.MethodPost, "/api/incidents", map[string]any{
		"id": "INC1", "type": "accident", "location": "near I001",
		"roadId": "R001", "severity": "high", "description": "two cars",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("report incident status = %d: %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/incidents/active", nil)
	var active []map[string]any
	decode(t, w, &active)
	if len(active) != 1 {
		t.Fatalf("active incidents = %d, want 1", len(active))
	}

	if w := do(t, r, http.MethodPut, "/api/incidents/INC1/resolve", nil); w.Code != http.StatusOK {
		t.Fatalf("resolve status = %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/api/incidents/active", nil)
	decode(t, w, &active)
	if len(active) != 0 {
		t.Errorf("active incidents after resolve = %d, want 0", len(active))
	}
}

func TestReportAlertSchedulesMitigation(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/init", nil)

	w := do(t, r, http.MethodPost, "/api/security/alerts", map[string]any{
		"id": "ALERT1", "entityType": "host", "entityId": "192.168.1.9",
		"severity": "high", "score": 0.97,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("report alert status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK         bool `json:"ok"`
		Mitigation struct {
			Scheduled bool   `json:"scheduled"`
			VehicleID string `json:"vehicleId"`
			Status    string `json:"status"`
		} `json:"mitigation"`
	}
	decode(t, w, &resp)
	if !resp.OK {
		t.Errorf("ok = false")
	}
	if !resp.Mitigation.Scheduled || resp.Mitigation.VehicleID != "V_192_168_1_9" || resp.Mitigation.Status != "pending" {
		t.Errorf("mitigation = %+v", resp.Mitigation)
	}

	// Low severity findings are recorded but not acted on.
	w = do(t, r, http.MethodPost, "/api/security/alerts", map[string]any{
		"id": "ALERT2", "entityType": "host", "entityId": "10.0.0.5", "severity": "low",
	})
	decode(t, w, &resp)
	if resp.Mitigation.Scheduled {
		t.Errorf("low severity alert scheduled a mitigation")
	}

	w = do(t, r, http.MethodGet, "/api/security/alerts/entity/host/192.168.1.9", nil)
	var alerts []map[string]any
	decode(t, w, &alerts)
	if len(alerts) != 1 {
		t.Errorf("alerts for entity = %d, want 1", len(alerts))
	}
}

func TestSimulationControls(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/init", nil)

	if w := do(t, r, http.MethodPut, "/api/simulation/speed", map[string]any{"speed": 0}); w.Code != http.StatusBadRequest {
		t.Errorf("zero speed status = %d, want 400", w.Code)
	}
	if w := do(t, r, http.MethodPut, "/api/simulation/speed", map[string]any{"speed": 5}); w.Code != http.StatusOK {
		t.Errorf("set speed status = %d", w.Code)
	}
	if w := do(t, r, http.MethodPut, "/api/simulation/spawn-rate", map[string]any{"rate": -1}); w.Code != http.StatusBadRequest {
		t.Errorf("negative rate status = %d, want 400", w.Code)
	}

	w := do(t, r, http.MethodGet, "/api/simulation/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var stats struct {
		Running bool    `json:"isRunning"`
		Speed   float64 `json:"speed"`
	}
	decode(t, w, &stats)
	if stats.Running {
		t.Errorf("simulation reported running before start")
	}
	if stats.Speed != 5 {
		t.Errorf("speed = %v, want 5", stats.Speed)
	}
}

func TestNetworkStatisticsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/init", nil)

	w := do(t, r, http.MethodGet, "/api/statistics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("statistics status = %d", w.Code)
	}
	var stats struct {
		Vehicles struct {
			Total int `json:"total"`
		} `json:"vehicles"`
		Roads struct {
			Total int `json:"total"`
		} `json:"roads"`
	}
	decode(t, w, &stats)
	if stats.Vehicles.Total != 5 || stats.Roads.Total != 6 {
		t.Errorf("statistics = %+v", stats)
	}

	w = do(t, r, http.MethodGet, "/api/statistics/congestion", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("congestion report status = %d", w.Code)
	}
}
