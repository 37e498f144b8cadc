package model

// VehicleType classifies a vehicle for spawning and statistics.
type VehicleType string

const (
	VehicleCar       VehicleType = "car"
	VehicleTruck     VehicleType = "truck"
	VehicleBus       VehicleType = "bus"
	VehicleEmergency VehicleType = "emergency"
)

// Valid reports whether t is a known vehicle type.
func (t VehicleType) Valid() bool {
	switch t {
	case VehicleCar, VehicleTruck, VehicleBus, VehicleEmergency:
		return true
	}
	return false
}

// Direction is the cosmetic compass heading of a vehicle. It is not derived
// from road geometry.
type Direction string

const (
	DirectionNorth Direction = "north"
	DirectionSouth Direction = "south"
	DirectionEast  Direction = "east"
	DirectionWest  Direction = "west"
)

// Directions lists the four compass values in a stable order for uniform
// random choice.
var Directions = []Direction{DirectionNorth, DirectionSouth, DirectionEast, DirectionWest}

// Valid reports whether d is a compass value.
func (d Direction) Valid() bool {
	switch d {
	case DirectionNorth, DirectionSouth, DirectionEast, DirectionWest:
		return true
	}
	return false
}

// VehicleStatus is a vehicle's lifecycle state. Only active vehicles are
// moved by the mobility task.
type VehicleStatus string

const (
	VehicleActive     VehicleStatus = "active"
	VehicleStopped    VehicleStatus = "stopped"
	VehicleParked     VehicleStatus = "parked"
	VehicleQuarantine VehicleStatus = "quarantine"
)

// Valid reports whether s is a known vehicle status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleStopped, VehicleParked, VehicleQuarantine:
		return true
	}
	return false
}

// Vehicle is a simulated vehicle on the road network. CurrentIntersection is
// expected to be one of CurrentRoad's two endpoints; the mobility task
// tolerates a mismatch by defaulting to the road's end.
type Vehicle struct {
	ID                  string        `json:"id"`
	AssetType           Kind          `json:"assetType"`
	Type                VehicleType   `json:"type"`
	CurrentRoad         string        `json:"currentRoad"`
	CurrentIntersection string        `json:"currentIntersection"`
	Speed               int           `json:"speed"`
	Direction           Direction     `json:"direction"`
	Timestamp           string        `json:"timestamp"`
	IsEmergency         bool          `json:"isEmergency"`
	Status              VehicleStatus `json:"status"`
}

func (v *Vehicle) Key() string     { return v.ID }
func (v *Vehicle) AssetKind() Kind { return KindVehicle }
