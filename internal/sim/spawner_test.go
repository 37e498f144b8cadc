package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/citygridlabs/traffic-twin/model"
)

func TestVehicleTypeForBoundaries(t *testing.T) {
	cases := []struct {
		roll float64
		want model.VehicleType
	}{
		{0.0, model.VehicleCar},
		{0.69, model.VehicleCar},
		{0.70, model.VehicleCar},
		{0.71, model.VehicleTruck},
		{0.85, model.VehicleTruck},
		{0.86, model.VehicleBus},
		{0.95, model.VehicleBus},
		{0.96, model.VehicleEmergency},
		{0.9999, model.VehicleEmergency},
	}
	for _, tc := range cases {
		if got := vehicleTypeFor(tc.roll); got != tc.want {
			t.Errorf("vehicleTypeFor(%v) = %q, want %q", tc.roll, got, tc.want)
		}
	}
}

func TestVehicleTypeDistribution(t *testing.T) {
	const draws = 100000
	rng := rand.New(rand.NewSource(42))

	counts := map[model.VehicleType]int{}
	for i := 0; i < draws; i++ {
		counts[vehicleTypeFor(rng.Float64())]++
	}

	want := map[model.VehicleType]float64{
		model.VehicleCar:       0.70,
		model.VehicleTruck:     0.15,
		model.VehicleBus:       0.10,
		model.VehicleEmergency: 0.05,
	}
	for typ, expected := range want {
		got := float64(counts[typ]) / draws
		if math.Abs(got-expected) > 0.01 {
			t.Errorf("%s frequency = %.4f, want %.2f within 0.01", typ, got, expected)
		}
	}
}

func TestMoveSpeed(t *testing.T) {
	cases := []struct {
		name        string
		isEmergency bool
		maxSpeed    int
		variation   float64
		want        int
	}{
		{"emergency capped at 120", true, 100, 9.9, 120},
		{"emergency above limit", true, 50, 0, 80},
		{"regular clamped to 20", false, 25, -10, 20},
		{"regular capped at limit", false, 60, 5, 60},
		{"regular below limit", false, 60, -5, 55},
	}
	for _, tc := range cases {
		if got := moveSpeed(tc.isEmergency, tc.maxSpeed, tc.variation); got != tc.want {
			t.Errorf("%s: moveSpeed = %d, want %d", tc.name, got, tc.want)
		}
	}
}
