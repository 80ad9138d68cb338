// Package geometry provides the 2D polygon primitives used by the layout
// store and the cutout engine.
//
// Coordinates are board coordinates in meters. Polygons are simple rings
// (first point implicitly closed to the last); holes are carried by the
// owning primitive as separate void polygons, not embedded in the ring.
//
// The package deliberately restricts boolean operations to what the cutout
// flow needs: convex clip regions (convex hull, bounding box, or a convex
// decomposition for conforming extents) intersected against arbitrary
// subject rings. This keeps the clipping code exact for the supported
// region shapes instead of approximating a general polygon engine.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in board coordinates (meters).
// It is an alias of gonum's r2.Vec so the vector helpers in
// gonum.org/v1/gonum/spatial/r2 apply directly.
type Point = r2.Vec

// Pt is shorthand for constructing a Point.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min Point
	Max Point
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y }

// Contains reports whether p lies inside or on the boundary of the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Intersects reports whether two rectangles overlap or touch.
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Pt(math.Min(r.Min.X, o.Min.X), math.Min(r.Min.Y, o.Min.Y)),
		Max: Pt(math.Max(r.Max.X, o.Max.X), math.Max(r.Max.Y, o.Max.Y)),
	}
}

// Expand grows the rectangle by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{
		Min: Pt(r.Min.X-d, r.Min.Y-d),
		Max: Pt(r.Max.X+d, r.Max.Y+d),
	}
}

// Polygon returns the rectangle as a counter-clockwise ring.
func (r Rect) Polygon() Polygon {
	return Polygon{
		Pt(r.Min.X, r.Min.Y),
		Pt(r.Max.X, r.Min.Y),
		Pt(r.Max.X, r.Max.Y),
		Pt(r.Min.X, r.Max.Y),
	}
}

// Polygon is a simple closed ring of vertices. The closing edge from the
// last vertex back to the first is implicit. Orientation is not enforced;
// Area is signed and callers that care normalize with EnsureCCW.
type Polygon []Point

// IsNull reports whether the polygon has fewer than three vertices and
// therefore encloses no area.
func (p Polygon) IsNull() bool { return len(p) < 3 }

// Clone returns an independent copy of the ring.
func (p Polygon) Clone() Polygon {
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// SignedArea returns the shoelace area: positive for counter-clockwise rings.
func (p Polygon) SignedArea() float64 {
	if p.IsNull() {
		return 0
	}
	var sum float64
	for i, a := range p {
		b := p[(i+1)%len(p)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Area returns the absolute enclosed area.
func (p Polygon) Area() float64 { return math.Abs(p.SignedArea()) }

// EnsureCCW returns the ring in counter-clockwise orientation,
// reversing a copy if necessary.
func (p Polygon) EnsureCCW() Polygon {
	if p.SignedArea() >= 0 {
		return p
	}
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// BoundingBox returns the axis-aligned bounds of the ring.
// A null polygon yields an empty rectangle at the origin.
func (p Polygon) BoundingBox() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{Min: p[0], Max: p[0]}
	for _, pt := range p[1:] {
		r.Min.X = math.Min(r.Min.X, pt.X)
		r.Min.Y = math.Min(r.Min.Y, pt.Y)
		r.Max.X = math.Max(r.Max.X, pt.X)
		r.Max.Y = math.Max(r.Max.Y, pt.Y)
	}
	return r
}

// Centroid returns the area-weighted center of the ring.
// Degenerate rings fall back to the vertex average.
func (p Polygon) Centroid() Point {
	a := p.SignedArea()
	if a == 0 {
		var c Point
		for _, pt := range p {
			c = r2.Add(c, pt)
		}
		if len(p) > 0 {
			c = r2.Scale(1/float64(len(p)), c)
		}
		return c
	}
	var cx, cy float64
	for i, v := range p {
		w := p[(i+1)%len(p)]
		cross := v.X*w.Y - w.X*v.Y
		cx += (v.X + w.X) * cross
		cy += (v.Y + w.Y) * cross
	}
	return Pt(cx/(6*a), cy/(6*a))
}

// Contains reports whether pt lies inside the ring (even-odd ray cast).
// Points exactly on an edge are treated as inside.
func (p Polygon) Contains(pt Point) bool {
	if p.IsNull() {
		return false
	}
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[j], p[i]
		if onSegment(a, b, pt) {
			return true
		}
		if (b.Y > pt.Y) != (a.Y > pt.Y) {
			x := (a.X-b.X)*(pt.Y-b.Y)/(a.Y-b.Y) + b.X
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment reports whether pt lies on the closed segment a-b.
func onSegment(a, b, pt Point) bool {
	const eps = 1e-12
	cross := (b.X-a.X)*(pt.Y-a.Y) - (b.Y-a.Y)*(pt.X-a.X)
	if math.Abs(cross) > eps {
		return false
	}
	dot := (pt.X-a.X)*(b.X-a.X) + (pt.Y-a.Y)*(b.Y-a.Y)
	if dot < -eps {
		return false
	}
	return dot <= r2.Dot(r2.Sub(b, a), r2.Sub(b, a))+eps
}

// Translate returns the ring shifted by d.
func (p Polygon) Translate(d Point) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = r2.Add(pt, d)
	}
	return out
}

// Rotate returns the ring rotated by angle radians about the origin.
func (p Polygon) Rotate(angle float64) Polygon {
	sin, cos := math.Sincos(angle)
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Pt(pt.X*cos-pt.Y*sin, pt.X*sin+pt.Y*cos)
	}
	return out
}

// PolygonSet is a collection of disjoint rings treated as one region.
// The cutout engine produces sets when a conforming extent decomposes
// into multiple convex pieces.
type PolygonSet []Polygon

// IsNull reports whether the set contains no ring with area.
func (s PolygonSet) IsNull() bool {
	for _, p := range s {
		if !p.IsNull() {
			return false
		}
	}
	return true
}

// Area returns the summed area of all member rings.
func (s PolygonSet) Area() float64 {
	var a float64
	for _, p := range s {
		a += p.Area()
	}
	return a
}

// BoundingBox returns the bounds of the whole set.
func (s PolygonSet) BoundingBox() Rect {
	var r Rect
	first := true
	for _, p := range s {
		if p.IsNull() {
			continue
		}
		if first {
			r = p.BoundingBox()
			first = false
			continue
		}
		r = r.Union(p.BoundingBox())
	}
	return r
}

// Contains reports whether pt lies inside any member ring.
func (s PolygonSet) Contains(pt Point) bool {
	for _, p := range s {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}
