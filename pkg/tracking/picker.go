package tracking

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

// Viewpoint is the camera/view collaborator used for picking.
type Viewpoint interface {
	// Position returns the eye position in world coordinates.
	Position() r3.Vec
	// Forward returns the unit viewing axis.
	Forward() r3.Vec
	// Project maps a world point to pointer-space pixels. The flag is false
	// when the point is behind the viewing plane.
	Project(world r3.Vec) (r2.Vec, bool)
}

// Candidate is a body considered for selection this tick.
type Candidate struct {
	ID        int
	Head      r3.Vec  // Resolved head position
	Direction r3.Vec  // Resolved facing direction (unit)
	Screen    r2.Vec  // Projected pointer-space position, valid only if OnScreen
	OnScreen  bool    // In front of the viewpoint with a finite projection
	Distance  float64 // Meters from the viewpoint to Head
}

// BuildCandidates resolves and projects every body. The result is sorted by
// ID so that iteration order, and therefore tie-breaking, is deterministic.
// A nil view yields candidates that are never pickable and have infinite
// distance.
func BuildCandidates(bodies []skeleton.Body, resolver *skeleton.Resolver, view Viewpoint) []Candidate {
	candidates := make([]Candidate, 0, len(bodies))

	for _, b := range bodies {
		head, dir := resolver.Pose(b)
		c := Candidate{
			ID:        b.ID,
			Head:      head,
			Direction: dir,
			Distance:  math.Inf(1),
		}

		if view != nil && skeleton.Finite(head) {
			eye := view.Position()
			c.Distance = skeleton.Distance(head, eye)

			screen, inFront := view.Project(head)
			ahead := r3.Dot(r3.Sub(head, eye), view.Forward()) > 0
			if inFront && ahead && finite2(screen) {
				c.Screen = screen
				c.OnScreen = true
			}
		}

		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
	return candidates
}

// Pick returns the candidate closest to the pointer in pixels, provided it is
// on screen, within maxDistance meters of the viewpoint and within
// pixelRadius pixels of the pointer. Ties go to the first candidate in slice
// order.
func Pick(pointer r2.Vec, candidates []Candidate, pixelRadius, maxDistance float64) (int, bool) {
	if !finite2(pointer) {
		return 0, false
	}

	bestID := 0
	bestDist := math.Inf(1)
	found := false

	for _, c := range candidates {
		if !c.OnScreen || !(c.Distance <= maxDistance) {
			continue
		}
		d := r2.Norm(r2.Sub(c.Screen, pointer))
		if math.IsNaN(d) {
			continue
		}
		if d < bestDist {
			bestID, bestDist, found = c.ID, d, true
		}
	}

	if !found || bestDist > pixelRadius {
		return 0, false
	}
	return bestID, true
}

// Nearest returns the candidate closest to the viewpoint in world space.
// Candidates with unknown distance are skipped.
func Nearest(candidates []Candidate) (int, bool) {
	bestID := 0
	bestDist := math.Inf(1)
	found := false

	for _, c := range candidates {
		if c.Distance < bestDist {
			bestID, bestDist, found = c.ID, c.Distance, true
		}
	}
	return bestID, found
}

// find returns the candidate with the given ID.
func find(candidates []Candidate, id int) (Candidate, bool) {
	for _, c := range candidates {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}

func finite2(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
