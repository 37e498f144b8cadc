package model

// ResolvableStatus is the two-state lifecycle shared by incidents and
// security alerts. Resolution is monotonic; there is no un-resolve.
type ResolvableStatus string

const (
	StatusActive   ResolvableStatus = "active"
	StatusResolved ResolvableStatus = "resolved"
)

// Incident is a reported disruption on a road.
type Incident struct {
	ID          string           `json:"id"`
	AssetType   Kind             `json:"assetType"`
	Type        string           `json:"type"` // accident, roadwork, closure, weather
	Location    string           `json:"location"`
	RoadID      string           `json:"roadId"`
	Severity    Severity         `json:"severity"`
	Description string           `json:"description"`
	Status      ResolvableStatus `json:"status"`
	ReportedAt  string           `json:"reportedAt"`
	ResolvedAt  string           `json:"resolvedAt,omitempty"`
	Timestamp   string           `json:"timestamp"`
}

func (i *Incident) Key() string     { return i.ID }
func (i *Incident) AssetKind() Kind { return KindIncident }
