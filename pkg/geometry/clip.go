package geometry

// IntersectionType classifies a subject ring against a clip region.
type IntersectionType int

const (
	// Disjoint means the subject shares no area with the clip region.
	Disjoint IntersectionType = iota
	// Overlapping means the subject crosses the clip boundary; part of it
	// survives clipping and part does not.
	Overlapping
	// Contained means the subject lies entirely inside the clip region.
	Contained
)

// String returns the classification name.
func (t IntersectionType) String() string {
	switch t {
	case Disjoint:
		return "disjoint"
	case Overlapping:
		return "overlapping"
	case Contained:
		return "contained"
	default:
		return "unknown"
	}
}

// ClipConvex intersects subject with the convex ring clip using
// Sutherland–Hodgman. The result is nil when no area survives.
// clip must be convex; subject may be any simple ring.
func ClipConvex(subject, clip Polygon) Polygon {
	if subject.IsNull() || clip.IsNull() {
		return nil
	}
	clip = clip.EnsureCCW()
	out := subject.Clone()

	for i := range clip {
		a := clip[i]
		b := clip[(i+1)%len(clip)]

		in := out
		out = nil
		if len(in) == 0 {
			return nil
		}

		inside := func(p Point) bool {
			return (b.X-a.X)*(p.Y-a.Y)-(b.Y-a.Y)*(p.X-a.X) >= 0
		}
		intersect := func(p, q Point) Point {
			dc := Pt(b.X-a.X, b.Y-a.Y)
			dp := Pt(q.X-p.X, q.Y-p.Y)
			denom := dc.X*dp.Y - dc.Y*dp.X
			t := ((a.X-p.X)*dc.Y - (a.Y-p.Y)*dc.X) / -denom
			return Pt(p.X+t*dp.X, p.Y+t*dp.Y)
		}

		prev := in[len(in)-1]
		prevIn := inside(prev)
		for _, cur := range in {
			curIn := inside(cur)
			switch {
			case curIn && prevIn:
				out = append(out, cur)
			case curIn && !prevIn:
				out = append(out, intersect(prev, cur), cur)
			case !curIn && prevIn:
				out = append(out, intersect(prev, cur))
			}
			prev, prevIn = cur, curIn
		}
	}
	if Polygon(out).Area() == 0 {
		return nil
	}
	return out
}

// Classify determines how subject relates to the convex ring clip.
// Boundary-touching subjects count as Contained when no area is lost.
func Classify(subject, clip Polygon) IntersectionType {
	if subject.IsNull() || clip.IsNull() {
		return Disjoint
	}
	if !subject.BoundingBox().Intersects(clip.BoundingBox()) {
		return Disjoint
	}

	allIn := true
	for _, pt := range subject {
		if !clip.Contains(pt) {
			allIn = false
			break
		}
	}
	if allIn {
		return Contained
	}

	clipped := ClipConvex(subject, clip)
	if clipped.IsNull() {
		return Disjoint
	}
	return Overlapping
}

// ClassifySet classifies subject against a region made of disjoint convex
// members. Contained requires full containment in a single member.
func ClassifySet(subject Polygon, region PolygonSet) IntersectionType {
	result := Disjoint
	for _, clip := range region {
		switch Classify(subject, clip) {
		case Contained:
			return Contained
		case Overlapping:
			result = Overlapping
		}
	}
	return result
}

// ClipSet intersects subject with every member of the region and returns
// the surviving pieces. Members are assumed disjoint, so pieces do not
// double-count area.
func ClipSet(subject Polygon, region PolygonSet) []Polygon {
	var pieces []Polygon
	for _, clip := range region {
		if piece := ClipConvex(subject, clip); !piece.IsNull() {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}
