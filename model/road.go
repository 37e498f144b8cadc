package model

// RoadStatus is a road's administrative state.
type RoadStatus string

const (
	RoadOpen      RoadStatus = "open"
	RoadClosed    RoadStatus = "closed"
	RoadCongested RoadStatus = "congested"
)

// Valid reports whether s is a known road status.
func (s RoadStatus) Valid() bool {
	switch s {
	case RoadOpen, RoadClosed, RoadCongested:
		return true
	}
	return false
}

// CongestionLevel is the discretized occupancy band of a road. It is a pure
// function of the live active-vehicle count, recomputed rather than
// accumulated.
type CongestionLevel string

const (
	CongestionLow    CongestionLevel = "low"
	CongestionMedium CongestionLevel = "medium"
	CongestionHigh   CongestionLevel = "high"
)

// Valid reports whether c is a known congestion band.
func (c CongestionLevel) Valid() bool {
	switch c {
	case CongestionLow, CongestionMedium, CongestionHigh:
		return true
	}
	return false
}

// CongestionForCount maps a live active-vehicle count onto its band:
// 0-2 low, 3-4 medium, 5+ high.
func CongestionForCount(vehicles int) CongestionLevel {
	switch {
	case vehicles <= 2:
		return CongestionLow
	case vehicles <= 4:
		return CongestionMedium
	default:
		return CongestionHigh
	}
}

// Road is a directed-agnostic segment between two distinct intersections.
// CurrentVehicleCount is informational only; the congestion band is derived
// from live occupancy, not from this field.
type Road struct {
	ID                  string          `json:"id"`
	AssetType           Kind            `json:"assetType"`
	Name                string          `json:"name"`
	StartIntersection   string          `json:"startIntersection"`
	EndIntersection     string          `json:"endIntersection"`
	Lanes               int             `json:"lanes"`
	MaxSpeed            int             `json:"maxSpeed"`
	Length              int             `json:"length"`
	CurrentVehicleCount int             `json:"currentVehicleCount"`
	Status              RoadStatus      `json:"status"`
	CongestionLevel     CongestionLevel `json:"congestionLevel"`
	Timestamp           string          `json:"timestamp"`
}

func (r *Road) Key() string     { return r.ID }
func (r *Road) AssetKind() Kind { return KindRoad }
