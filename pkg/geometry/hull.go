package geometry

import "sort"

// ConvexHull returns the convex hull of the given points as a
// counter-clockwise ring. Fewer than three distinct points yield a
// null polygon. The input slice is not modified.
//
// Implementation is Andrew's monotone chain, O(n log n).
func ConvexHull(points []Point) Polygon {
	if len(points) < 3 {
		return nil
	}

	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	// Drop duplicates so collinear duplicate points cannot break the chain.
	uniq := pts[:1]
	for _, p := range pts[1:] {
		last := uniq[len(uniq)-1]
		if p.X != last.X || p.Y != last.Y {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return nil
	}

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower []Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []Point
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}
	return Polygon(hull)
}

// ConvexHullOfPolygons returns the convex hull covering every vertex of
// the given rings.
func ConvexHullOfPolygons(polys []Polygon) Polygon {
	var pts []Point
	for _, p := range polys {
		pts = append(pts, p...)
	}
	return ConvexHull(pts)
}
