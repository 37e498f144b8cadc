package model

// Violation records a vehicle exceeding a road's speed limit. Violations are
// append-only: created once, never mutated or deleted by normal flow.
// ExcessSpeed is always positive.
type Violation struct {
	ID          string `json:"id"`
	AssetType   Kind   `json:"assetType"`
	VehicleID   string `json:"vehicleId"`
	RoadID      string `json:"roadId"`
	SpeedLimit  int    `json:"speedLimit"`
	ActualSpeed int    `json:"actualSpeed"`
	ExcessSpeed int    `json:"excessSpeed"`
	Timestamp   string `json:"timestamp"`
	Location    string `json:"location"`
}

func (v *Violation) Key() string     { return v.ID }
func (v *Violation) AssetKind() Kind { return KindViolation }
