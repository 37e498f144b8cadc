package model

import (
	"testing"
)

func TestTrafficLightCycle(t *testing.T) {
	cases := []struct {
		in   TrafficLight
		want TrafficLight
	}{
		{LightGreen, LightYellow},
		{LightYellow, LightRed},
		{LightRed, LightGreen},
		{TrafficLight("purple"), LightGreen},
		{TrafficLight(""), LightGreen},
	}
	for _, tc := range cases {
		if got := tc.in.Next(); got != tc.want {
			t.Errorf("Next(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCongestionForCount(t *testing.T) {
	cases := []struct {
		count int
		want  CongestionLevel
	}{
		{0, CongestionLow},
		{1, CongestionLow},
		{2, CongestionLow},
		{3, CongestionMedium},
		{4, CongestionMedium},
		{5, CongestionHigh},
		{12, CongestionHigh},
	}
	for _, tc := range cases {
		if got := CongestionForCount(tc.count); got != tc.want {
			t.Errorf("CongestionForCount(%d) = %q, want %q", tc.count, got, tc.want)
		}
	}
}

func TestDecodeDispatchesOnAssetType(t *testing.T) {
	v := &Vehicle{
		ID:                  "V900",
		Type:                VehicleBus,
		CurrentRoad:         "R001",
		CurrentIntersection: "I001",
		Speed:               42,
		Direction:           DirectionEast,
		Status:              VehicleActive,
	}
	raw, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	decoded, ok := got.(*Vehicle)
	if !ok {
		t.Fatalf("Decode returned %T, want *Vehicle", got)
	}
	if decoded.AssetKind() != KindVehicle {
		t.Errorf("AssetKind = %q, want %q", decoded.AssetKind(), KindVehicle)
	}
	if decoded.Speed != 42 || decoded.CurrentRoad != "R001" {
		t.Errorf("decoded vehicle fields mismatch: %+v", decoded)
	}
}

func TestEncodeForcesTag(t *testing.T) {
	// A struct built with a wrong tag must still encode as its real kind.
	r := &Road{ID: "R9", AssetType: Kind("vehicle"), StartIntersection: "I1", EndIntersection: "I2"}
	raw, err := Encode(r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := got.(*Road); !ok {
		t.Fatalf("Decode returned %T, want *Road", got)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := Decode([]byte(`{"assetType":"spaceship","id":"X1"}`)); err == nil {
		t.Fatal("Decode of unknown assetType succeeded, want error")
	}
}
