package model

// EntityType identifies what kind of entity a security alert points at.
type EntityType string

const (
	EntityHost         EntityType = "host"
	EntityVehicle      EntityType = "vehicle"
	EntityRoad         EntityType = "road"
	EntityIntersection EntityType = "intersection"
)

// Valid reports whether t is a known alert entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityHost, EntityVehicle, EntityRoad, EntityIntersection:
		return true
	}
	return false
}

// SecurityAlert is an anomaly finding raised against a network entity.
// Alerts with high or critical severity against a host entity trigger the
// asynchronous vehicle quarantine path.
type SecurityAlert struct {
	ID            string           `json:"id"`
	AssetType     Kind             `json:"assetType"`
	Source        string           `json:"source"`
	Dataset       string           `json:"dataset"`
	Scenario      string           `json:"scenario"`
	WindowMinutes int              `json:"windowMinutes"`
	EntityType    EntityType       `json:"entityType"`
	EntityID      string           `json:"entityId"`
	Score         float64          `json:"score"`
	Severity      Severity         `json:"severity"`
	Status        ResolvableStatus `json:"status"`
	Justification string           `json:"justification"`
	KeyFeatures   []string         `json:"keyFeatures"`
	CreatedAt     string           `json:"createdAt"`
	ResolvedAt    string           `json:"resolvedAt,omitempty"`
	Timestamp     string           `json:"timestamp"`
}

func (a *SecurityAlert) Key() string     { return a.ID }
func (a *SecurityAlert) AssetKind() Kind { return KindSecurityAlert }
