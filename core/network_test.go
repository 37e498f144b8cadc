package core

import (
	"testing"

	"github.com/citygridlabs/traffic-twin/model"
)

func testNetwork() *Network {
	roads := []*model.Road{
		{ID: "R1", StartIntersection: "I1", EndIntersection: "I2", MaxSpeed: 60},
		{ID: "R2", StartIntersection: "I2", EndIntersection: "I3", MaxSpeed: 50},
		{ID: "R3", StartIntersection: "I1", EndIntersection: "I3", MaxSpeed: 40},
	}
	intersections := []*model.Intersection{
		{ID: "I1"}, {ID: "I2"}, {ID: "I3"}, {ID: "I4"},
	}
	return NewNetwork(roads, intersections)
}

func TestNextIntersection(t *testing.T) {
	n := testNetwork()
	road, _ := n.Road("R1")

	next, fallback := n.NextIntersection(road, "I1")
	if next != "I2" || fallback {
		t.Errorf("from start: got (%s, %v), want (I2, false)", next, fallback)
	}

	next, fallback = n.NextIntersection(road, "I2")
	if next != "I1" || fallback {
		t.Errorf("from end: got (%s, %v), want (I1, false)", next, fallback)
	}

	// A vehicle whose intersection matches neither endpoint defaults to the
	// road's end.
	next, fallback = n.NextIntersection(road, "I99")
	if next != "I2" || !fallback {
		t.Errorf("mismatch: got (%s, %v), want (I2, true)", next, fallback)
	}
}

func TestConnectedRoads(t *testing.T) {
	n := testNetwork()

	got := n.ConnectedRoads("I1")
	if len(got) != 2 || got[0].ID != "R1" || got[1].ID != "R3" {
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		t.Errorf("ConnectedRoads(I1) = %v, want [R1 R3]", ids)
	}

	if got := n.ConnectedRoads("I4"); len(got) != 0 {
		t.Errorf("ConnectedRoads(I4) returned %d roads, want dead end", len(got))
	}
}

func TestRoadsSortedAndCounted(t *testing.T) {
	n := testNetwork()
	roads := n.Roads()
	if len(roads) != 3 || n.RoadCount() != 3 {
		t.Fatalf("RoadCount = %d, len(Roads) = %d, want 3", n.RoadCount(), len(roads))
	}
	for i := 1; i < len(roads); i++ {
		if roads[i-1].ID >= roads[i].ID {
			t.Errorf("Roads not sorted: %s before %s", roads[i-1].ID, roads[i].ID)
		}
	}
	if n.IntersectionCount() != 4 {
		t.Errorf("IntersectionCount = %d, want 4", n.IntersectionCount())
	}
}
