package model

// TrafficLight is the signal phase at an intersection.
type TrafficLight string

const (
	LightGreen  TrafficLight = "green"
	LightYellow TrafficLight = "yellow"
	LightRed    TrafficLight = "red"
)

// Next advances the fixed cycle green→yellow→red→green. An unrecognized
// current phase resets to green.
func (l TrafficLight) Next() TrafficLight {
	switch l {
	case LightGreen:
		return LightYellow
	case LightYellow:
		return LightRed
	case LightRed:
		return LightGreen
	default:
		return LightGreen
	}
}

// Valid reports whether l is a known signal phase.
func (l TrafficLight) Valid() bool {
	switch l {
	case LightGreen, LightYellow, LightRed:
		return true
	}
	return false
}

// Density is the coarse traffic density at an intersection.
type Density string

const (
	DensityLow    Density = "low"
	DensityMedium Density = "medium"
	DensityHigh   Density = "high"
)

// Valid reports whether d is a known density grade.
func (d Density) Valid() bool {
	switch d {
	case DensityLow, DensityMedium, DensityHigh:
		return true
	}
	return false
}

// Intersection is a junction node in the road network.
type Intersection struct {
	ID                string       `json:"id"`
	AssetType         Kind         `json:"assetType"`
	Name              string       `json:"name"`
	Latitude          float64      `json:"latitude"`
	Longitude         float64      `json:"longitude"`
	ConnectedRoads    []string     `json:"connectedRoads"`
	TrafficLightState TrafficLight `json:"trafficLightState"`
	TrafficDensity    Density      `json:"trafficDensity"`
	Timestamp         string       `json:"timestamp"`
}

func (i *Intersection) Key() string     { return i.ID }
func (i *Intersection) AssetKind() Kind { return KindIntersection }
