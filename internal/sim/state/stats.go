package state

import (
	"context"
	"math"

	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// NetworkStatistics is a point-in-time summary of the whole twin.
type NetworkStatistics struct {
	Timestamp     string            `json:"timestamp"`
	Vehicles      VehicleStats      `json:"vehicles"`
	Roads         RoadStats         `json:"roads"`
	Intersections IntersectionStats `json:"intersections"`
	Incidents     IncidentStats     `json:"incidents"`
	Violations    ViolationStats    `json:"violations"`
}

type VehicleStats struct {
	Total        int                       `json:"total"`
	Active       int                       `json:"active"`
	Emergency    int                       `json:"emergency"`
	ByType       map[model.VehicleType]int `json:"byType"`
	AverageSpeed int                       `json:"averageSpeed"`
}

type RoadStats struct {
	Total       int                           `json:"total"`
	Open        int                           `json:"open"`
	Closed      int                           `json:"closed"`
	TotalLength int                           `json:"totalLength"`
	Congestion  map[model.CongestionLevel]int `json:"congestion"`
}

type IntersectionStats struct {
	Total         int                        `json:"total"`
	TrafficLights map[model.TrafficLight]int `json:"trafficLights"`
	Density       map[model.Density]int      `json:"density"`
}

type IncidentStats struct {
	Total      int                    `json:"total"`
	Active     int                    `json:"active"`
	Resolved   int                    `json:"resolved"`
	BySeverity map[model.Severity]int `json:"bySeverity"`
}

type ViolationStats struct {
	Total              int `json:"total"`
	AverageExcessSpeed int `json:"averageExcessSpeed"`
}

// GetNetworkStatistics aggregates every asset kind in one read transaction.
// The numbers are advisory; by the time a caller sees them the simulation
// has moved on.
func (t *Traffic) GetNetworkStatistics(ctx context.Context) (*NetworkStatistics, error) {
	stats := &NetworkStatistics{
		Vehicles: VehicleStats{ByType: map[model.VehicleType]int{
			model.VehicleCar: 0, model.VehicleTruck: 0, model.VehicleBus: 0, model.VehicleEmergency: 0,
		}},
		Roads: RoadStats{Congestion: map[model.CongestionLevel]int{
			model.CongestionLow: 0, model.CongestionMedium: 0, model.CongestionHigh: 0,
		}},
		Intersections: IntersectionStats{
			TrafficLights: map[model.TrafficLight]int{
				model.LightGreen: 0, model.LightYellow: 0, model.LightRed: 0,
			},
			Density: map[model.Density]int{
				model.DensityLow: 0, model.DensityMedium: 0, model.DensityHigh: 0,
			},
		},
		Incidents: IncidentStats{BySeverity: map[model.Severity]int{
			model.SeverityLow: 0, model.SeverityMedium: 0, model.SeverityHigh: 0, model.SeverityCritical: 0,
		}},
	}

	var speedSum, excessSum int
	err := t.evaluate(ctx, "GetNetworkStatistics", func(txn ledger.Txn) error {
		recs, err := txn.Range("", "")
		if err != nil {
			return err
		}
		for _, r := range recs {
			a, err := model.Decode(r.Value)
			if err != nil {
				continue
			}
			switch v := a.(type) {
			case *model.Vehicle:
				stats.Vehicles.Total++
				if v.Status == model.VehicleActive {
					stats.Vehicles.Active++
				}
				if v.IsEmergency {
					stats.Vehicles.Emergency++
				}
				stats.Vehicles.ByType[v.Type]++
				speedSum += v.Speed
			case *model.Road:
				stats.Roads.Total++
				switch v.Status {
				case model.RoadOpen:
					stats.Roads.Open++
				case model.RoadClosed:
					stats.Roads.Closed++
				}
				stats.Roads.TotalLength += v.Length
				stats.Roads.Congestion[v.CongestionLevel]++
			case *model.Intersection:
				stats.Intersections.Total++
				stats.Intersections.TrafficLights[v.TrafficLightState]++
				stats.Intersections.Density[v.TrafficDensity]++
			case *model.Incident:
				stats.Incidents.Total++
				if v.Status == model.StatusActive {
					stats.Incidents.Active++
				} else {
					stats.Incidents.Resolved++
				}
				stats.Incidents.BySeverity[v.Severity]++
			case *model.Violation:
				stats.Violations.Total++
				excessSum += v.ExcessSpeed
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.Timestamp = t.timestamp()
	if stats.Vehicles.Total > 0 {
		stats.Vehicles.AverageSpeed = int(math.Round(float64(speedSum) / float64(stats.Vehicles.Total)))
	}
	if stats.Violations.Total > 0 {
		stats.Violations.AverageExcessSpeed = int(math.Round(float64(excessSum) / float64(stats.Violations.Total)))
	}
	return stats, nil
}

// RoadCongestionEntry is one road's line in the congestion report.
type RoadCongestionEntry struct {
	RoadID          string                `json:"roadId"`
	Name            string                `json:"name"`
	CongestionLevel model.CongestionLevel `json:"congestionLevel"`
	Status          model.RoadStatus      `json:"status"`
	VehicleCount    int                   `json:"vehicleCount"`
	Lanes           int                   `json:"lanes"`
	MaxSpeed        int                   `json:"maxSpeed"`
}

// RoadCongestionReport lists every road's congestion state.
type RoadCongestionReport struct {
	Timestamp  string                `json:"timestamp"`
	TotalRoads int                   `json:"totalRoads"`
	Roads      []RoadCongestionEntry `json:"roads"`
}

// GetRoadCongestionReport summarizes congestion across all roads.
func (t *Traffic) GetRoadCongestionReport(ctx context.Context) (*RoadCongestionReport, error) {
	roads, err := t.GetAllRoads(ctx)
	if err != nil {
		return nil, err
	}

	report := &RoadCongestionReport{
		Timestamp:  t.timestamp(),
		TotalRoads: len(roads),
		Roads:      []RoadCongestionEntry{},
	}
	for _, r := range roads {
		report.Roads = append(report.Roads, RoadCongestionEntry{
			RoadID:          r.ID,
			Name:            r.Name,
			CongestionLevel: r.CongestionLevel,
			Status:          r.Status,
			VehicleCount:    r.CurrentVehicleCount,
			Lanes:           r.Lanes,
			MaxSpeed:        r.MaxSpeed,
		})
	}
	return report, nil
}
