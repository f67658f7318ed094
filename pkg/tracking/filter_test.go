package tracking

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestFilter_FirstUpdateSeeds(t *testing.T) {
	f := NewFilter(0)

	pos, dir, applied := f.Update(vec(1, 2, 3), vec(0, 0, 2), 0.9, 0.9)
	if !applied {
		t.Fatal("first update should be applied")
	}
	if !vecEquals(pos, vec(1, 2, 3)) {
		t.Errorf("position = %v, want raw value", pos)
	}
	if !vecEquals(dir, vec(0, 0, 1)) {
		t.Errorf("direction = %v, want normalized raw value", dir)
	}
	if !f.Seeded() {
		t.Error("filter should be seeded")
	}
}

func TestFilter_ResetDiscardsHistory(t *testing.T) {
	f := NewFilter(0)
	f.Reset(vec(0, 0, 0), vec(0, 0, 1))
	f.Update(vec(10, 0, 0), vec(1, 0, 0), 0.5, 0.5)

	f.Reset(vec(5, 5, 5), vec(0, 1, 0))
	pos, dir := f.Pose()
	if !vecEquals(pos, vec(5, 5, 5)) || !vecEquals(dir, vec(0, 1, 0)) {
		t.Errorf("after Reset got %v %v, want seeded values", pos, dir)
	}
	if !vecEquals(f.LastRaw(), vec(5, 5, 5)) {
		t.Errorf("LastRaw = %v, want seed", f.LastRaw())
	}
}

func TestFilter_ExponentialStep(t *testing.T) {
	f := NewFilter(0)
	f.Reset(vec(0, 0, 0), vec(0, 0, 1))

	// factor 0.75 keeps 75% of the old value
	pos, _, _ := f.Update(vec(4, 0, 0), vec(0, 0, 1), 0.75, 0.75)
	if !vecEquals(pos, vec(1, 0, 0)) {
		t.Errorf("position = %v, want (1,0,0)", pos)
	}
}

func TestFilter_ZeroFactorAdoptsRaw(t *testing.T) {
	f := NewFilter(0)
	f.Reset(vec(0, 0, 0), vec(0, 0, 1))

	pos, dir, _ := f.Update(vec(3, 1, 2), vec(1, 0, 0), 0, 0)
	if !vecEquals(pos, vec(3, 1, 2)) {
		t.Errorf("position = %v, want raw", pos)
	}
	if !vecEquals(dir, vec(1, 0, 0)) {
		t.Errorf("direction = %v, want raw", dir)
	}
}

func TestFilter_FactorOneStillMoves(t *testing.T) {
	f := NewFilter(0)
	f.Reset(vec(0, 0, 0), vec(0, 0, 1))

	pos, _, _ := f.Update(vec(100, 0, 0), vec(0, 0, 1), 1, 1)
	want := 100 * (1 - MaxSmoothingFactor)
	if !floatEquals(pos.X, want) {
		t.Errorf("factor 1 should be clamped: X = %v, want %v", pos.X, want)
	}
}

func TestFilter_DirectionStaysNormalized(t *testing.T) {
	f := NewFilter(0)
	f.Reset(vec(0, 0, 0), vec(0, 0, 1))

	for i := 0; i < 20; i++ {
		_, dir, _ := f.Update(vec(0, 0, 0), vec(1, 0, 0), 0.7, 0.7)
		if n := r3.Norm(dir); math.Abs(n-1) > 1e-9 {
			t.Fatalf("iteration %d: |dir| = %v", i, n)
		}
	}
}

func TestFilter_OppositeDirectionDoesNotCollapse(t *testing.T) {
	f := NewFilter(0)
	f.Reset(vec(0, 0, 0), vec(0, 0, 1))

	// Halfway between opposite vectors is the zero vector
	_, dir, _ := f.Update(vec(0, 0, 0), vec(0, 0, -1), 0.5, 0.5)
	if !vecEquals(dir, vec(0, 0, -1)) {
		t.Errorf("direction = %v, want raw fallback (0,0,-1)", dir)
	}
}

func TestFilter_Convergence(t *testing.T) {
	f := NewFilter(0)
	f.Reset(vec(0, 0, 0), vec(0, 0, 1))

	raw := vec(2.5, -1.25, 7)
	rawDir := r3.Unit(vec(1, 1, 0))
	prevGap := math.Inf(1)

	for i := 0; i < 1000; i++ {
		pos, _, _ := f.Update(raw, rawDir, 0.8, 0.8)
		gap := r3.Norm(r3.Sub(raw, pos))
		if gap > prevGap {
			t.Fatalf("iteration %d: gap grew from %v to %v", i, prevGap, gap)
		}
		prevGap = gap
	}

	pos, dir := f.Pose()
	if pos != raw {
		t.Errorf("position did not converge exactly: %v vs %v", pos, raw)
	}
	if !vecEquals(dir, rawDir) {
		t.Errorf("direction did not converge: %v vs %v", dir, rawDir)
	}
}

func TestFilter_DeadZoneSuppressesJitter(t *testing.T) {
	f := NewFilter(Millimeters(5))
	f.Reset(vec(0, 1.6, 3), vec(0, 0, 1))

	before, beforeDir := f.Pose()
	lastRaw := f.LastRaw()

	// 3 mm of jitter
	pos, dir, applied := f.Update(vec(0.003, 1.6, 3), vec(1, 0, 0), 0, 0)
	if applied {
		t.Error("update inside the dead zone should be skipped")
	}
	if pos != before || dir != beforeDir {
		t.Errorf("output changed inside dead zone: %v %v", pos, dir)
	}
	if f.LastRaw() != lastRaw {
		t.Errorf("last accepted raw changed inside dead zone: %v", f.LastRaw())
	}

	// 1 cm move passes
	pos, _, applied = f.Update(vec(0.01, 1.6, 3), vec(0, 0, 1), 0, 0)
	if !applied {
		t.Error("update outside the dead zone should be applied")
	}
	if !vecEquals(pos, vec(0.01, 1.6, 3)) {
		t.Errorf("position = %v, want raw", pos)
	}
}

func TestFilter_DeadZoneMeasuresFromLastAccepted(t *testing.T) {
	f := NewFilter(Millimeters(5))
	f.Reset(vec(0, 0, 0), vec(0, 0, 1))

	// Two 3 mm steps: each is below the threshold relative to the last
	// accepted raw value (the origin), so the second is 6 mm away and passes
	if _, _, applied := f.Update(vec(0.003, 0, 0), vec(0, 0, 1), 0, 0); applied {
		t.Error("first 3 mm step should be skipped")
	}
	if _, _, applied := f.Update(vec(0.006, 0, 0), vec(0, 0, 1), 0, 0); !applied {
		t.Error("6 mm from last accepted should be applied")
	}
}

func TestFilter_Clear(t *testing.T) {
	f := NewFilter(0.01)
	f.Reset(vec(1, 1, 1), vec(0, 0, 1))
	f.Clear()

	if f.Seeded() {
		t.Error("Clear should drop the seed")
	}
	if f.DeadZone != 0.01 {
		t.Errorf("Clear should keep the dead zone, got %v", f.DeadZone)
	}
}
