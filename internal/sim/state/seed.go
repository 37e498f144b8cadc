package state

import (
	"context"

	"github.com/citygridlabs/traffic-twin/core"
	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// InitSummary reports what InitNetwork wrote.
type InitSummary struct {
	Message       string `json:"message"`
	Intersections int    `json:"intersections"`
	Roads         int    `json:"roads"`
	Vehicles      int    `json:"vehicles"`
	Total         int    `json:"total"`
}

// InitNetwork seeds the demo network: five intersections, six roads and
// five vehicles, all in one transaction. Re-running it overwrites the seed
// assets in place, which resets a drifted demo without touching anything
// created since.
func (t *Traffic) InitNetwork(ctx context.Context) (*InitSummary, error) {
	err := t.submit(ctx, "InitNetwork", func(txn ledger.Txn) error {
		ts := t.timestamp()
		for _, a := range seedAssets(ts) {
			if err := put(txn, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &InitSummary{
		Message:       "traffic network initialized",
		Intersections: 5,
		Roads:         6,
		Vehicles:      5,
		Total:         16,
	}, nil
}

// Network loads the current road graph in one read transaction.
func (t *Traffic) Network(ctx context.Context) (*core.Network, error) {
	var (
		roads         []*model.Road
		intersections []*model.Intersection
	)
	err := t.evaluate(ctx, "LoadNetwork", func(txn ledger.Txn) error {
		recs, err := txn.Range("", "")
		if err != nil {
			return err
		}
		roads, intersections = roads[:0], intersections[:0]
		for _, r := range recs {
			a, err := model.Decode(r.Value)
			if err != nil {
				continue
			}
			switch v := a.(type) {
			case *model.Road:
				roads = append(roads, v)
			case *model.Intersection:
				intersections = append(intersections, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return core.NewNetwork(roads, intersections), nil
}

func seedAssets(ts string) []model.Asset {
	mkIntersection := func(id, name string, lat, lon float64, roads []string, light model.TrafficLight, density model.Density) *model.Intersection {
		return &model.Intersection{
			ID: id, Name: name, Latitude: lat, Longitude: lon,
			ConnectedRoads: roads, TrafficLightState: light,
			TrafficDensity: density, Timestamp: ts,
		}
	}
	mkRoad := func(id, name, start, end string, lanes, maxSpeed, length int, congestion model.CongestionLevel) *model.Road {
		return &model.Road{
			ID: id, Name: name, StartIntersection: start, EndIntersection: end,
			Lanes: lanes, MaxSpeed: maxSpeed, Length: length,
			Status: model.RoadOpen, CongestionLevel: congestion, Timestamp: ts,
		}
	}
	mkVehicle := func(id string, typ model.VehicleType, road, intersection string, speed int, dir model.Direction) *model.Vehicle {
		return &model.Vehicle{
			ID: id, Type: typ, CurrentRoad: road, CurrentIntersection: intersection,
			Speed: speed, Direction: dir, Timestamp: ts,
			IsEmergency: typ == model.VehicleEmergency, Status: model.VehicleActive,
		}
	}

	return []model.Asset{
		mkIntersection("I001", "Central Plaza", 33.5731, -7.5898, []string{"R001", "R002", "R005"}, model.LightGreen, model.DensityLow),
		mkIntersection("I002", "North Gate", 33.5850, -7.5898, []string{"R001", "R003"}, model.LightRed, model.DensityMedium),
		mkIntersection("I003", "East Junction", 33.5731, -7.5750, []string{"R002", "R004"}, model.LightGreen, model.DensityLow),
		mkIntersection("I004", "South Hub", 33.5612, -7.5898, []string{"R005", "R006"}, model.LightYellow, model.DensityHigh),
		mkIntersection("I005", "West Terminal", 33.5731, -7.6046, []string{"R003", "R004", "R006"}, model.LightGreen, model.DensityMedium),

		mkRoad("R001", "Mohammed V Avenue", "I001", "I002", 4, 60, 1500, model.CongestionLow),
		mkRoad("R002", "Hassan II Boulevard", "I001", "I003", 3, 50, 1200, model.CongestionLow),
		mkRoad("R003", "Anfa Street", "I002", "I005", 2, 40, 800, model.CongestionMedium),
		mkRoad("R004", "Corniche Road", "I003", "I005", 3, 70, 2000, model.CongestionLow),
		mkRoad("R005", "Zerktouni Avenue", "I001", "I004", 3, 50, 1000, model.CongestionHigh),
		mkRoad("R006", "Mers Sultan Road", "I004", "I005", 2, 40, 900, model.CongestionMedium),

		mkVehicle("V001", model.VehicleCar, "R001", "I001", 50, model.DirectionNorth),
		mkVehicle("V002", model.VehicleTruck, "R002", "I001", 40, model.DirectionEast),
		mkVehicle("V003", model.VehicleBus, "R003", "I002", 45, model.DirectionWest),
		mkVehicle("V004", model.VehicleCar, "R004", "I003", 60, model.DirectionWest),
		mkVehicle("V005", model.VehicleEmergency, "R005", "I001", 80, model.DirectionSouth),
	}
}
