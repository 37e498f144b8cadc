package model

import (
	"encoding/json"
	"fmt"
)

// Kind is the assetType discriminant carried by every ledger record.
type Kind string

const (
	KindVehicle       Kind = "vehicle"
	KindRoad          Kind = "road"
	KindIntersection  Kind = "intersection"
	KindIncident      Kind = "incident"
	KindViolation     Kind = "violation"
	KindSecurityAlert Kind = "securityAlert"
)

// Asset is implemented by every durable record kind. The asset's key in the
// store is its ID.
type Asset interface {
	Key() string
	AssetKind() Kind
}

// Severity grades incidents and security alerts.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severity grades.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Encode marshals an asset to its wire form, forcing the assetType tag to
// match the concrete kind so hand-built records cannot lie about it.
func Encode(a Asset) ([]byte, error) {
	switch v := a.(type) {
	case *Vehicle:
		v.AssetType = KindVehicle
	case *Road:
		v.AssetType = KindRoad
	case *Intersection:
		v.AssetType = KindIntersection
	case *Incident:
		v.AssetType = KindIncident
	case *Violation:
		v.AssetType = KindViolation
	case *SecurityAlert:
		v.AssetType = KindSecurityAlert
	default:
		return nil, fmt.Errorf("unknown asset type %T", a)
	}
	return json.Marshal(a)
}

// Decode picks the concrete variant for a raw record based on its assetType
// tag. Records with an unknown tag return an error rather than a partially
// populated struct.
func Decode(raw []byte) (Asset, error) {
	var probe struct {
		AssetType Kind `json:"assetType"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode asset envelope: %w", err)
	}

	var a Asset
	switch probe.AssetType {
	case KindVehicle:
		a = &Vehicle{}
	case KindRoad:
		a = &Road{}
	case KindIntersection:
		a = &Intersection{}
	case KindIncident:
		a = &Incident{}
	case KindViolation:
		a = &Violation{}
	case KindSecurityAlert:
		a = &SecurityAlert{}
	default:
		return nil, fmt.Errorf("unknown assetType %q", probe.AssetType)
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", probe.AssetType, err)
	}
	return a, nil
}
