package cutout

import (
	"fmt"
	"strings"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/geometry"
	"github.com/edalab/lamina/pkg/layout"
)

// ExtentType selects how the clip region is derived from signal-net
// geometry.
type ExtentType int

const (
	// Conforming offsets each signal primitive by the expansion size and
	// unites the results, following the net shapes closely.
	Conforming ExtentType = iota
	// ConvexHull takes the convex hull of all signal geometry, expanded.
	ConvexHull
	// BoundingBox takes the axis-aligned bounding box, expanded.
	BoundingBox
)

// String returns the canonical extent type name.
func (t ExtentType) String() string {
	switch t {
	case Conforming:
		return "Conforming"
	case ConvexHull:
		return "ConvexHull"
	case BoundingBox:
		return "BoundingBox"
	default:
		return fmt.Sprintf("extenttype(%d)", int(t))
	}
}

// ParseExtentType maps a name onto its ExtentType, ignoring case.
func ParseExtentType(s string) (ExtentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conforming":
		return Conforming, nil
	case "convexhull", "convex_hull":
		return ConvexHull, nil
	case "boundingbox", "bounding_box":
		return BoundingBox, nil
	default:
		return Conforming, errors.Newf(errors.ErrCodeInvalidExtentType, "unknown extent type %q", s)
	}
}

// unitScale maps a length unit name to its factor in meters.
var unitScale = map[string]float64{
	"m":   1,
	"cm":  1e-2,
	"mm":  1e-3,
	"um":  1e-6,
	"mil": 2.54e-5,
	"in":  2.54e-2,
}

// scaleCustomExtent converts a user-supplied extent polygon from units into
// meters.
func scaleCustomExtent(poly geometry.Polygon, units string) (geometry.Polygon, error) {
	if units == "" {
		units = "mm"
	}
	scale, ok := unitScale[strings.ToLower(units)]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidExtentType, "unknown extent units %q", units)
	}
	out := make(geometry.Polygon, len(poly))
	for i, p := range poly {
		out[i] = geometry.Pt(p.X*scale, p.Y*scale)
	}
	return out, nil
}

// computeExtent derives the clip region from the signal-net geometry of
// cell. The region is a set of disjoint convex polygons so membership and
// clipping tests stay exact.
func computeExtent(cell *layout.Cell, signalNets []string, extentType ExtentType,
	expansion float64, roundCorners bool, defeatureSize float64) (geometry.PolygonSet, error) {

	prims := cell.PrimitivesOnNets(signalNets)
	pinsts := cell.PadstackInstancesOnNets(signalNets)
	if len(prims) == 0 && len(pinsts) == 0 {
		return nil, errors.Newf(errors.ErrCodeExtentEmpty, "no geometry found on signal nets %v", signalNets)
	}

	switch extentType {
	case BoundingBox:
		var bb geometry.Rect
		first := true
		for _, p := range prims {
			if first {
				bb, first = p.Outline.BoundingBox(), false
			} else {
				bb = bb.Union(p.Outline.BoundingBox())
			}
		}
		for _, p := range pinsts {
			pt := geometry.Rect{Min: p.Position, Max: p.Position}
			if first {
				bb, first = pt, false
			} else {
				bb = bb.Union(pt)
			}
		}
		return geometry.PolygonSet{bb.Expand(expansion).Polygon()}, nil

	case ConvexHull:
		var pts []geometry.Point
		for _, p := range prims {
			pts = append(pts, p.Outline...)
		}
		for _, p := range pinsts {
			pts = append(pts, p.Position)
		}
		hull := geometry.ConvexHull(pts)
		if hull.IsNull() {
			return nil, errors.New(errors.ErrCodeExtentEmpty, "signal geometry is degenerate")
		}
		if expansion > 0 {
			hull = geometry.Expand(hull, expansion, roundCorners)
		}
		return geometry.PolygonSet{hull}, nil

	default: // Conforming
		var expanded []geometry.Polygon
		for _, p := range prims {
			hull := geometry.ConvexHull(p.Outline)
			if hull.IsNull() {
				continue
			}
			if expansion > 0 {
				hull = geometry.Expand(hull, expansion, roundCorners)
			}
			expanded = append(expanded, hull)
		}
		for _, p := range pinsts {
			expanded = append(expanded, padExtent(p.Position, expansion))
		}
		region := geometry.MergeOverlapping(expanded)
		if defeatureSize > 0 {
			region = geometry.Defeature(region, defeatureSize)
		}
		if region.IsNull() {
			return nil, errors.New(errors.ErrCodeExtentEmpty, "conforming extent is empty")
		}
		return region, nil
	}
}

// padExtent returns a small square region around a padstack position so
// standalone vias contribute to a conforming extent.
func padExtent(pos geometry.Point, expansion float64) geometry.Polygon {
	if expansion <= 0 {
		expansion = 1e-6
	}
	return geometry.Rect{Min: pos, Max: pos}.Expand(expansion).Polygon()
}
