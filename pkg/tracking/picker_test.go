package tracking

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

func onScreen(id int, x, y, distance float64) Candidate {
	return Candidate{ID: id, Screen: r2.Vec{X: x, Y: y}, OnScreen: true, Distance: distance}
}

func TestPick_NearestWithinRadius(t *testing.T) {
	candidates := []Candidate{
		onScreen(1, 100, 100, 5),
		onScreen(2, 130, 100, 5),
		onScreen(3, 400, 400, 5),
	}

	id, ok := Pick(r2.Vec{X: 120, Y: 100}, candidates, 60, 15)
	if !ok || id != 2 {
		t.Errorf("Pick = %d, %v; want 2, true", id, ok)
	}
}

func TestPick_Idempotent(t *testing.T) {
	candidates := []Candidate{
		onScreen(4, 200, 200, 3),
		onScreen(9, 220, 210, 4),
	}
	pointer := r2.Vec{X: 212, Y: 205}

	id1, ok1 := Pick(pointer, candidates, 60, 15)
	id2, ok2 := Pick(pointer, candidates, 60, 15)
	if id1 != id2 || ok1 != ok2 {
		t.Errorf("Pick not idempotent: (%d,%v) then (%d,%v)", id1, ok1, id2, ok2)
	}
}

func TestPick_RadiusBoundary(t *testing.T) {
	const radius = 60.0
	pointer := r2.Vec{X: 100, Y: 100}

	tests := []struct {
		name   string
		offset float64
		want   bool
	}{
		{"exactly on radius", radius, true},
		{"just outside radius", radius + 1e-9, false},
		{"inside radius", radius - 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := []Candidate{onScreen(5, 100+tt.offset, 100, 3)}
			_, ok := Pick(pointer, candidates, radius, 15)
			if ok != tt.want {
				t.Errorf("Pick ok = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestPick_MaxDistance(t *testing.T) {
	candidates := []Candidate{
		onScreen(1, 100, 100, 16), // Right under the pointer but too far away
		onScreen(2, 140, 100, 15), // Exactly at the limit
	}

	id, ok := Pick(r2.Vec{X: 100, Y: 100}, candidates, 60, 15)
	if !ok || id != 2 {
		t.Errorf("Pick = %d, %v; want 2, true", id, ok)
	}
}

func TestPick_IgnoresOffscreen(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Screen: r2.Vec{X: 100, Y: 100}, OnScreen: false, Distance: 2},
	}

	if _, ok := Pick(r2.Vec{X: 100, Y: 100}, candidates, 60, 15); ok {
		t.Error("off-screen candidate must not be pickable")
	}
}

func TestPick_NoCandidates(t *testing.T) {
	if _, ok := Pick(r2.Vec{X: 1, Y: 1}, nil, 60, 15); ok {
		t.Error("Pick with no candidates should fail")
	}
}

func TestPick_NaNPointer(t *testing.T) {
	candidates := []Candidate{onScreen(1, 100, 100, 2)}
	if _, ok := Pick(r2.Vec{X: math.NaN(), Y: 100}, candidates, 60, 15); ok {
		t.Error("NaN pointer must not pick")
	}
}

func TestBuildCandidates_SortedAndProjected(t *testing.T) {
	r := skeleton.NewResolver(skeleton.DefaultLayout())
	view := newView()

	bodies := []skeleton.Body{
		bodyAt(9, vec(1, 0, 5)),
		bodyAt(2, vec(0, 0, 4)),
		bodyAt(5, vec(0, 0, -3)), // Behind the viewer
	}

	candidates := BuildCandidates(bodies, r, view)
	if len(candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(candidates))
	}

	for i, want := range []int{2, 5, 9} {
		if candidates[i].ID != want {
			t.Errorf("candidates[%d].ID = %d, want %d", i, candidates[i].ID, want)
		}
	}

	c2 := candidates[0]
	if !c2.OnScreen || !floatEquals(c2.Screen.X, 640) || !floatEquals(c2.Screen.Y, 360) {
		t.Errorf("body 2 projection = %+v", c2)
	}
	if !floatEquals(c2.Distance, 4) {
		t.Errorf("body 2 distance = %v, want 4", c2.Distance)
	}

	if candidates[1].OnScreen {
		t.Error("body behind the viewpoint must not be on screen")
	}
	if candidates[1].Screen != (r2.Vec{}) {
		t.Error("body behind the viewpoint must not hold a projection")
	}
}

func TestBuildCandidates_MalformedProjection(t *testing.T) {
	r := skeleton.NewResolver(skeleton.DefaultLayout())
	view := &brokenView{pinholeView{f: 500}}

	candidates := BuildCandidates([]skeleton.Body{bodyAt(1, vec(0, 0, 3))}, r, view)
	if candidates[0].OnScreen {
		t.Error("NaN projection must be treated as unprojectable")
	}
	if _, ok := Pick(r2.Vec{X: 640, Y: 360}, candidates, 1e6, 1e6); ok {
		t.Error("unprojectable candidate must not be picked")
	}
}

func TestBuildCandidates_NilView(t *testing.T) {
	r := skeleton.NewResolver(skeleton.DefaultLayout())

	candidates := BuildCandidates([]skeleton.Body{bodyAt(1, vec(0, 0, 3))}, r, nil)
	if candidates[0].OnScreen {
		t.Error("no viewpoint means nothing is on screen")
	}
	if !math.IsInf(candidates[0].Distance, 1) {
		t.Errorf("distance = %v, want +Inf", candidates[0].Distance)
	}
	if _, ok := Nearest(candidates); ok {
		t.Error("Nearest should skip candidates with unknown distance")
	}
}

func TestPick_TieGoesToLowestID(t *testing.T) {
	r := skeleton.NewResolver(skeleton.DefaultLayout())
	view := newView()

	// Mirror images around the pointer: identical pixel distance
	bodies := []skeleton.Body{
		bodyAt(8, vec(0.2, 0, 5)),
		bodyAt(3, vec(-0.2, 0, 5)),
	}
	candidates := BuildCandidates(bodies, r, view)

	id, ok := Pick(r2.Vec{X: 640, Y: 360}, candidates, 60, 15)
	if !ok || id != 3 {
		t.Errorf("Pick = %d, %v; want 3 (lowest ID)", id, ok)
	}
}

func TestNearest(t *testing.T) {
	candidates := []Candidate{
		onScreen(1, 0, 0, 6),
		{ID: 2, Distance: 2}, // Off screen still counts for preview
		onScreen(3, 0, 0, 4),
	}

	id, ok := Nearest(candidates)
	if !ok || id != 2 {
		t.Errorf("Nearest = %d, %v; want 2, true", id, ok)
	}

	if _, ok := Nearest(nil); ok {
		t.Error("Nearest of nothing should fail")
	}
}
