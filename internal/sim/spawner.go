package sim

import "github.com/citygridlabs/traffic-twin/model"

// spawnDistribution is the fleet mix for spawned vehicles.
var spawnDistribution = []struct {
	typ    model.VehicleType
	weight float64
}{
	{model.VehicleCar, 0.70},
	{model.VehicleTruck, 0.15},
	{model.VehicleBus, 0.10},
	{model.VehicleEmergency, 0.05},
}

// vehicleTypeFor maps a uniform roll in [0, 1) onto the fleet mix by
// cumulative sampling. Rolls past the accumulated weights fall back to car.
func vehicleTypeFor(roll float64) model.VehicleType {
	cumulative := 0.0
	for _, d := range spawnDistribution {
		cumulative += d.weight
		if roll <= cumulative {
			return d.typ
		}
	}
	return model.VehicleCar
}
