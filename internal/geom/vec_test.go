package geom

import (
	"math"
	"testing"
)

func TestWithinRangeIncludesBoundary(t *testing.T) {
	a := V(0, 0, 0)
	b := V(3, 0, 0)
	if !a.WithinRange(b, 3) {
		t.Fatalf("expected boundary distance to count as in range")
	}
	if a.WithinRange(b, 2.999) {
		t.Fatalf("expected distance 3 to be outside 2.999")
	}
	if a.WithinRange(a, -1) {
		t.Fatalf("expected negative range to never match")
	}
}

func TestDistance(t *testing.T) {
	got := V(1, 2, 2).Distance(V(0, 0, 0))
	if math.Abs(got-3) > 1e-9 {
		t.Fatalf("expected distance 3, got %f", got)
	}
	sum := V(1, 1, 1).Add(V(1, 2, 3)).Sub(V(0, 1, 0)).Scale(2)
	if sum != V(4, 4, 8) {
		t.Fatalf("unexpected vector arithmetic result %+v", sum)
	}
}

func TestNormalize(t *testing.T) {
	n, ok := V(3, 0, 4).Normalize()
	if !ok {
		t.Fatalf("expected non-zero vector to normalize")
	}
	if math.Abs(n.Length()-1) > 1e-9 || math.Abs(n.X-0.6) > 1e-9 || math.Abs(n.Z-0.8) > 1e-9 {
		t.Fatalf("unexpected unit vector %+v", n)
	}
	if _, ok := (Vec3{}).Normalize(); ok {
		t.Fatalf("zero vector must not normalize")
	}
}
