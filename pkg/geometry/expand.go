package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// roundSegments is the number of arc segments used to approximate a
// quarter circle when expanding with round corners.
const roundSegments = 4

// Expand offsets a convex counter-clockwise ring outward by distance d.
// With roundCorners false, corners are mitered by intersecting the two
// offset edges; with roundCorners true, each corner is replaced by an
// arc approximation. d == 0 returns the ring unchanged; negative d is
// clamped to zero (the cutout flow never shrinks extents).
//
// The input must be convex. General rings are expanded by expanding
// their convex hull (see ExpandHull).
func Expand(p Polygon, d float64, roundCorners bool) Polygon {
	if p.IsNull() {
		return nil
	}
	if d <= 0 {
		return p.Clone()
	}
	p = p.EnsureCCW()
	n := len(p)

	// Outward normal of each edge (CCW ring: normals point right of travel).
	normals := make([]Point, n)
	for i := range p {
		a, b := p[i], p[(i+1)%n]
		e := r2.Sub(b, a)
		l := math.Hypot(e.X, e.Y)
		if l == 0 {
			normals[i] = Pt(0, 0)
			continue
		}
		normals[i] = Pt(e.Y/l, -e.X/l)
	}

	var out Polygon
	for i := range p {
		prev := normals[(i-1+n)%n]
		cur := normals[i]
		v := p[i]

		if roundCorners {
			startAngle := math.Atan2(prev.Y, prev.X)
			endAngle := math.Atan2(cur.Y, cur.X)
			// CCW ring: the outward normal sweeps counter-clockwise
			// from the previous edge to the next.
			for endAngle < startAngle {
				endAngle += 2 * math.Pi
			}
			steps := int(math.Ceil((endAngle - startAngle) / (math.Pi / 2) * roundSegments))
			if steps < 1 {
				steps = 1
			}
			for s := 0; s <= steps; s++ {
				ang := startAngle + (endAngle-startAngle)*float64(s)/float64(steps)
				out = append(out, Pt(v.X+d*math.Cos(ang), v.Y+d*math.Sin(ang)))
			}
			continue
		}

		// Miter: intersect the two edges shifted along their normals.
		sum := r2.Add(prev, cur)
		l2 := r2.Dot(sum, sum)
		if l2 < 1e-18 {
			out = append(out, r2.Add(v, r2.Scale(d, cur)))
			continue
		}
		scale := 2 * d / l2
		out = append(out, r2.Add(v, r2.Scale(scale, sum)))
	}
	return out
}

// ExpandHull expands an arbitrary ring by expanding its convex hull.
func ExpandHull(p Polygon, d float64, roundCorners bool) Polygon {
	hull := ConvexHull(p)
	if hull.IsNull() {
		return nil
	}
	return Expand(hull, d, roundCorners)
}

// MergeOverlapping agglomerates rings whose expanded bounding boxes
// intersect, replacing each overlapping group with its convex hull.
// The result is a set of pairwise disjoint convex rings approximating
// the union of the inputs, suitable as a conforming clip region.
func MergeOverlapping(polys []Polygon) PolygonSet {
	if len(polys) == 0 {
		return nil
	}
	merged := make([]Polygon, 0, len(polys))
	for _, p := range polys {
		if !p.IsNull() {
			merged = append(merged, p)
		}
	}

	for {
		joined := false
		for i := 0; i < len(merged) && !joined; i++ {
			for j := i + 1; j < len(merged); j++ {
				if !merged[i].BoundingBox().Intersects(merged[j].BoundingBox()) {
					continue
				}
				hull := ConvexHullOfPolygons([]Polygon{merged[i], merged[j]})
				merged[i] = hull
				merged = append(merged[:j], merged[j+1:]...)
				joined = true
				break
			}
		}
		if !joined {
			return PolygonSet(merged)
		}
	}
}

// Defeature drops rings whose area falls below minArea. It is applied to
// conforming extents to simplify the clip region before classification.
func Defeature(s PolygonSet, minArea float64) PolygonSet {
	if minArea <= 0 {
		return s
	}
	out := make(PolygonSet, 0, len(s))
	for _, p := range s {
		if p.Area() >= minArea {
			out = append(out, p)
		}
	}
	return out
}
