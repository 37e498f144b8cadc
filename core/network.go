// Package core holds the in-memory road network graph the periodic tasks
// navigate. A Network is an immutable snapshot built from the store; tasks
// replace it wholesale on reload and never patch it incrementally.
package core

import (
	"sort"

	"github.com/citygridlabs/traffic-twin/model"
)

// Network is a read-only connectivity view of roads and intersections.
type Network struct {
	roads         map[string]*model.Road
	intersections map[string]*model.Intersection

	// byEndpoint indexes roads by each of their two endpoints.
	byEndpoint map[string][]*model.Road
}

// NewNetwork builds a snapshot from the given assets. The slices are
// indexed, not copied; callers hand over ownership.
func NewNetwork(roads []*model.Road, intersections []*model.Intersection) *Network {
	n := &Network{
		roads:         make(map[string]*model.Road, len(roads)),
		intersections: make(map[string]*model.Intersection, len(intersections)),
		byEndpoint:    make(map[string][]*model.Road),
	}
	for _, r := range roads {
		n.roads[r.ID] = r
		n.byEndpoint[r.StartIntersection] = append(n.byEndpoint[r.StartIntersection], r)
		if r.EndIntersection != r.StartIntersection {
			n.byEndpoint[r.EndIntersection] = append(n.byEndpoint[r.EndIntersection], r)
		}
	}
	for _, i := range intersections {
		n.intersections[i.ID] = i
	}
	return n
}

// Road returns the road with the given id.
func (n *Network) Road(id string) (*model.Road, bool) {
	r, ok := n.roads[id]
	return r, ok
}

// Intersection returns the intersection with the given id.
func (n *Network) Intersection(id string) (*model.Intersection, bool) {
	i, ok := n.intersections[id]
	return i, ok
}

// Roads returns all roads sorted by id for deterministic iteration.
func (n *Network) Roads() []*model.Road {
	out := make([]*model.Road, 0, len(n.roads))
	for _, r := range n.roads {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Intersections returns all intersections sorted by id.
func (n *Network) Intersections() []*model.Intersection {
	out := make([]*model.Intersection, 0, len(n.intersections))
	for _, i := range n.intersections {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RoadCount returns the number of roads in the snapshot.
func (n *Network) RoadCount() int { return len(n.roads) }

// IntersectionCount returns the number of intersections in the snapshot.
func (n *Network) IntersectionCount() int { return len(n.intersections) }

// NextIntersection returns the endpoint of road opposite to current. When
// current matches neither endpoint the road's end is returned and fallback
// is true, so the caller can flag the data-consistency issue without
// aborting the move.
func (n *Network) NextIntersection(road *model.Road, current string) (next string, fallback bool) {
	switch current {
	case road.StartIntersection:
		return road.EndIntersection, false
	case road.EndIntersection:
		return road.StartIntersection, false
	default:
		return road.EndIntersection, true
	}
}

// ConnectedRoads returns the roads having intersectionID as either endpoint,
// sorted by id. An empty result means a dead end.
func (n *Network) ConnectedRoads(intersectionID string) []*model.Road {
	roads := n.byEndpoint[intersectionID]
	out := make([]*model.Road, len(roads))
	copy(out, roads)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
