package geometry

import (
	"math"
	"testing"
)

const eps = 1e-9

func square(x, y, side float64) Polygon {
	return Polygon{
		Pt(x, y),
		Pt(x+side, y),
		Pt(x+side, y+side),
		Pt(x, y+side),
	}
}

func TestPolygonArea(t *testing.T) {
	tests := []struct {
		name string
		poly Polygon
		want float64
	}{
		{"unit square", square(0, 0, 1), 1},
		{"offset square", square(5, -3, 2), 4},
		{"triangle", Polygon{Pt(0, 0), Pt(2, 0), Pt(0, 2)}, 2},
		{"degenerate", Polygon{Pt(0, 0), Pt(1, 1)}, 0},
	}

	for _, tt := range tests {
		if got := tt.poly.Area(); math.Abs(got-tt.want) > eps {
			t.Errorf("%s: Area() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSignedAreaOrientation(t *testing.T) {
	ccw := square(0, 0, 1)
	if ccw.SignedArea() <= 0 {
		t.Error("CCW square should have positive signed area")
	}

	cw := Polygon{Pt(0, 0), Pt(0, 1), Pt(1, 1), Pt(1, 0)}
	if cw.SignedArea() >= 0 {
		t.Error("CW square should have negative signed area")
	}
	if cw.EnsureCCW().SignedArea() <= 0 {
		t.Error("EnsureCCW should flip a CW ring")
	}
}

func TestPolygonContains(t *testing.T) {
	p := square(0, 0, 2)
	tests := []struct {
		pt   Point
		want bool
	}{
		{Pt(1, 1), true},
		{Pt(0, 0), true},  // corner counts as inside
		{Pt(2, 1), true},  // edge counts as inside
		{Pt(3, 1), false},
		{Pt(-0.1, 1), false},
		{Pt(1, 2.5), false},
	}

	for _, tt := range tests {
		if got := p.Contains(tt.pt); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.pt, got, tt.want)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	p := Polygon{Pt(-1, 2), Pt(3, -4), Pt(0, 5)}
	bb := p.BoundingBox()
	if bb.Min.X != -1 || bb.Min.Y != -4 || bb.Max.X != 3 || bb.Max.Y != 5 {
		t.Errorf("unexpected bounds: %+v", bb)
	}
	if bb.Width() != 4 || bb.Height() != 9 {
		t.Errorf("Width/Height = %v/%v", bb.Width(), bb.Height())
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{Min: Pt(0, 0), Max: Pt(2, 2)}
	tests := []struct {
		b    Rect
		want bool
	}{
		{Rect{Min: Pt(1, 1), Max: Pt(3, 3)}, true},
		{Rect{Min: Pt(2, 0), Max: Pt(3, 1)}, true}, // touching counts
		{Rect{Min: Pt(2.1, 0), Max: Pt(3, 1)}, false},
		{Rect{Min: Pt(-5, -5), Max: Pt(-1, -1)}, false},
	}
	for _, tt := range tests {
		if got := a.Intersects(tt.b); got != tt.want {
			t.Errorf("Intersects(%+v) = %v, want %v", tt.b, got, tt.want)
		}
	}
}

func TestConvexHull(t *testing.T) {
	// Points of a square plus interior noise.
	pts := []Point{
		Pt(0, 0), Pt(4, 0), Pt(4, 4), Pt(0, 4),
		Pt(2, 2), Pt(1, 3), Pt(3, 1),
	}
	hull := ConvexHull(pts)
	if hull.IsNull() {
		t.Fatal("hull should not be null")
	}
	if len(hull) != 4 {
		t.Errorf("hull vertex count = %d, want 4", len(hull))
	}
	if math.Abs(hull.Area()-16) > eps {
		t.Errorf("hull area = %v, want 16", hull.Area())
	}
	if hull.SignedArea() <= 0 {
		t.Error("hull should be counter-clockwise")
	}
}

func TestConvexHullDegenerate(t *testing.T) {
	if h := ConvexHull([]Point{Pt(0, 0), Pt(1, 1)}); h != nil {
		t.Errorf("two points should have nil hull, got %v", h)
	}
	if h := ConvexHull([]Point{Pt(0, 0), Pt(1, 1), Pt(1, 1), Pt(0, 0)}); h != nil {
		t.Errorf("duplicate points should have nil hull, got %v", h)
	}
}

func TestClipConvex(t *testing.T) {
	clip := square(0, 0, 4)

	t.Run("contained subject unchanged in area", func(t *testing.T) {
		subject := square(1, 1, 1)
		got := ClipConvex(subject, clip)
		if math.Abs(got.Area()-1) > eps {
			t.Errorf("area = %v, want 1", got.Area())
		}
	})

	t.Run("straddling subject is halved", func(t *testing.T) {
		subject := square(3, 1, 2) // right half outside
		got := ClipConvex(subject, clip)
		if math.Abs(got.Area()-2) > eps {
			t.Errorf("area = %v, want 2", got.Area())
		}
		bb := got.BoundingBox()
		if bb.Max.X > 4+eps {
			t.Errorf("clipped polygon exceeds clip bounds: %+v", bb)
		}
	})

	t.Run("disjoint subject clips to nil", func(t *testing.T) {
		subject := square(10, 10, 1)
		if got := ClipConvex(subject, clip); !got.IsNull() {
			t.Errorf("expected null result, got area %v", got.Area())
		}
	})
}

func TestClassify(t *testing.T) {
	clip := square(0, 0, 4)
	tests := []struct {
		name    string
		subject Polygon
		want    IntersectionType
	}{
		{"inside", square(1, 1, 2), Contained},
		{"outside", square(6, 6, 1), Disjoint},
		{"straddling", square(3, 1, 2), Overlapping},
		// A corner touch clips to zero area, which counts as disjoint.
		{"touching corner only", square(4, 4, 1), Disjoint},
	}

	for _, tt := range tests {
		if got := Classify(tt.subject, clip); got != tt.want {
			t.Errorf("%s: Classify = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClassifySet(t *testing.T) {
	region := PolygonSet{square(0, 0, 2), square(10, 0, 2)}

	if got := ClassifySet(square(0.5, 0.5, 1), region); got != Contained {
		t.Errorf("subject in first member = %v, want Contained", got)
	}
	if got := ClassifySet(square(11, 0.5, 4), region); got != Overlapping {
		t.Errorf("subject straddling second member = %v, want Overlapping", got)
	}
	if got := ClassifySet(square(5, 5, 1), region); got != Disjoint {
		t.Errorf("subject in gap = %v, want Disjoint", got)
	}
}

func TestExpandMiter(t *testing.T) {
	p := square(0, 0, 2)
	got := Expand(p, 0.5, false)
	if got.IsNull() {
		t.Fatal("expanded polygon is null")
	}
	want := 9.0 // 3x3 square
	if math.Abs(got.Area()-want) > eps {
		t.Errorf("expanded area = %v, want %v", got.Area(), want)
	}
	bb := got.BoundingBox()
	if math.Abs(bb.Min.X+0.5) > eps || math.Abs(bb.Max.X-2.5) > eps {
		t.Errorf("unexpected expanded bounds: %+v", bb)
	}
}

func TestExpandRound(t *testing.T) {
	p := square(0, 0, 2)
	got := Expand(p, 0.5, true)
	if got.IsNull() {
		t.Fatal("expanded polygon is null")
	}
	// Rounded expansion area: square + edge strips + quarter circles,
	// approximated by chords so slightly below the exact value.
	exact := 4 + 4*2*0.5 + math.Pi*0.25
	if got.Area() > exact+eps {
		t.Errorf("round expansion area %v exceeds exact value %v", got.Area(), exact)
	}
	if got.Area() < exact*0.97 {
		t.Errorf("round expansion area %v too far below exact value %v", got.Area(), exact)
	}
}

func TestExpandZeroDistance(t *testing.T) {
	p := square(0, 0, 2)
	got := Expand(p, 0, false)
	if math.Abs(got.Area()-4) > eps {
		t.Errorf("zero expansion should keep area, got %v", got.Area())
	}
}

func TestMergeOverlapping(t *testing.T) {
	polys := []Polygon{
		square(0, 0, 2),
		square(1, 1, 2), // overlaps first
		square(10, 10, 1),
	}
	merged := MergeOverlapping(polys)
	if len(merged) != 2 {
		t.Fatalf("merged set size = %d, want 2", len(merged))
	}
	// The merged member must cover both source squares.
	var big Polygon
	for _, m := range merged {
		if m.Area() > 1.5 {
			big = m
		}
	}
	if big.IsNull() {
		t.Fatal("no merged member found")
	}
	for _, pt := range []Point{Pt(0.1, 0.1), Pt(2.9, 2.9)} {
		if !big.Contains(pt) {
			t.Errorf("merged hull should contain %v", pt)
		}
	}
}

func TestDefeature(t *testing.T) {
	s := PolygonSet{square(0, 0, 1), square(5, 5, 0.01)}
	out := Defeature(s, 0.001)
	if len(out) != 1 {
		t.Errorf("defeatured set size = %d, want 1", len(out))
	}
	if got := Defeature(s, 0); len(got) != 2 {
		t.Errorf("minArea 0 should keep all members, got %d", len(got))
	}
}

func TestTranslateRotate(t *testing.T) {
	p := square(0, 0, 1)

	moved := p.Translate(Pt(3, -2))
	if moved.BoundingBox().Min != Pt(3, -2) {
		t.Errorf("translate min = %v", moved.BoundingBox().Min)
	}

	rot := p.Rotate(math.Pi / 2)
	if math.Abs(rot.Area()-1) > eps {
		t.Errorf("rotation should preserve area, got %v", rot.Area())
	}
	bb := rot.BoundingBox()
	if math.Abs(bb.Min.X+1) > eps || math.Abs(bb.Max.Y-1) > eps {
		t.Errorf("unexpected rotated bounds: %+v", bb)
	}
}
