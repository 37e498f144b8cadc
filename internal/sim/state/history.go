package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/model"
)

// HistoryRecord is one committed write or delete of a vehicle key.
type HistoryRecord struct {
	TxID      string          `json:"txId"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsDelete  bool            `json:"isDelete"`
}

// VehicleHistory is the full journey feed for one vehicle, oldest first.
type VehicleHistory struct {
	VehicleID    string          `json:"vehicleId"`
	TotalRecords int             `json:"totalRecords"`
	History      []HistoryRecord `json:"history"`
}

// PathPoint is one step of a reconstructed movement path.
type PathPoint struct {
	Timestamp    time.Time       `json:"timestamp"`
	Road         string          `json:"road"`
	Intersection string          `json:"intersection"`
	Speed        int             `json:"speed"`
	Direction    model.Direction `json:"direction"`
}

// MovementPath is the road-to-road projection of a vehicle's history.
type MovementPath struct {
	VehicleID  string      `json:"vehicleId"`
	PathLength int         `json:"pathLength"`
	Path       []PathPoint `json:"path"`
}

// GetVehicleHistory returns every committed write for a vehicle key, oldest
// first. A vehicle with no history yields an empty feed, not an error.
func (t *Traffic) GetVehicleHistory(ctx context.Context, vehicleID string) (*VehicleHistory, error) {
	t.rec.Transaction("GetVehicleHistory")
	entries, err := t.store.HistoryOf(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	out := &VehicleHistory{VehicleID: vehicleID, History: []HistoryRecord{}}
	for _, e := range entries {
		out.History = append(out.History, HistoryRecord{
			TxID:      e.TxID,
			Timestamp: e.Timestamp,
			Data:      e.Payload,
			IsDelete:  e.IsDelete,
		})
	}
	out.TotalRecords = len(out.History)
	return out, nil
}

// GetVehicleMovementPath projects a vehicle's history onto the roads it
// traversed. Deletes and entries without a road are dropped; order is
// preserved from the history feed.
func (t *Traffic) GetVehicleMovementPath(ctx context.Context, vehicleID string) (*MovementPath, error) {
	hist, err := t.GetVehicleHistory(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	out := &MovementPath{VehicleID: vehicleID, Path: []PathPoint{}}
	for _, h := range hist.History {
		if h.IsDelete || len(h.Data) == 0 {
			continue
		}
		a, err := model.Decode(h.Data)
		if err != nil {
			t.log.Debug(ctx, "skipping undecodable history payload",
				logging.String("vehicle", vehicleID), logging.Err(err))
			continue
		}
		v, ok := a.(*model.Vehicle)
		if !ok || v.CurrentRoad == "" {
			continue
		}
		out.Path = append(out.Path, PathPoint{
			Timestamp:    h.Timestamp,
			Road:         v.CurrentRoad,
			Intersection: v.CurrentIntersection,
			Speed:        v.Speed,
			Direction:    v.Direction,
		})
	}
	out.PathLength = len(out.Path)
	return out, nil
}
