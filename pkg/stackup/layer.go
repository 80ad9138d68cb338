// Package stackup implements the ordered layer model of a board stackup:
// layers with elevations, the collection builder that rebuilds a consistent
// collection on every structural edit, and the transform engine (flip and
// placement of one stackup inside another).
package stackup

import (
	"fmt"
	"strings"
)

// LayerType is the closed set of layer kinds. Only Signal and Dielectric
// layers participate in elevation bookkeeping; the remaining kinds are
// non-stackup layers owned by name only.
type LayerType int

const (
	LayerSignal LayerType = iota
	LayerDielectric
	LayerConducting
	LayerAirlines
	LayerErrors
	LayerSymbol
	LayerMeasure
	LayerAssembly
	LayerSilkscreen
	LayerSolderMask
	LayerSolderPaste
	LayerGlue
	LayerWirebond
	LayerUser
	LayerSIWaveHFSSRegion
	LayerOutline
	LayerPostprocessing
	LayerUndefined
)

var layerTypeNames = map[LayerType]string{
	LayerSignal:           "signal",
	LayerDielectric:       "dielectric",
	LayerConducting:       "conducting",
	LayerAirlines:         "airlines",
	LayerErrors:           "errors",
	LayerSymbol:           "symbol",
	LayerMeasure:          "measure",
	LayerAssembly:         "assembly",
	LayerSilkscreen:       "silkscreen",
	LayerSolderMask:       "soldermask",
	LayerSolderPaste:      "solderpaste",
	LayerGlue:             "glue",
	LayerWirebond:         "wirebond",
	LayerUser:             "user",
	LayerSIWaveHFSSRegion: "siwavehfssregion",
	LayerOutline:          "outline",
	LayerPostprocessing:   "postprocessing",
	LayerUndefined:        "undefined",
}

// String returns the lower-case type name.
func (t LayerType) String() string {
	if s, ok := layerTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("layertype(%d)", int(t))
}

// ParseLayerType maps a type name onto its LayerType, ignoring case.
// Unknown names map to LayerUndefined.
func ParseLayerType(s string) LayerType {
	lower := strings.ToLower(strings.TrimSpace(s))
	for t, name := range layerTypeNames {
		if name == lower {
			return t
		}
	}
	return LayerUndefined
}

// IsStackup reports whether layers of this type carry elevation.
func (t LayerType) IsStackup() bool {
	return t == LayerSignal || t == LayerDielectric
}

// HurayRoughness is the Huray snowball surface roughness model.
type HurayRoughness struct {
	NoduleRadius float64 // meters
	SurfaceRatio float64
}

// GroisseRoughness is the Groisse surface roughness model.
type GroisseRoughness struct {
	Roughness float64 // meters
}

// SurfaceRoughness holds the model for one conductor surface. At most one of
// Huray/Groisse is set.
type SurfaceRoughness struct {
	Huray   *HurayRoughness
	Groisse *GroisseRoughness
}

// IsZero reports whether no model is configured for the surface.
func (s SurfaceRoughness) IsZero() bool { return s.Huray == nil && s.Groisse == nil }

// Roughness configures per-surface conductor roughness. Each surface is
// independently settable; Enabled gates the whole feature.
type Roughness struct {
	Enabled bool
	Top     SurfaceRoughness
	Bottom  SurfaceRoughness
	Side    SurfaceRoughness
}

// Layer is a single stackup or non-stackup layer. Thickness and elevations
// are in meters. For via layers (RefLayerBottom/RefLayerTop set) elevation is
// derived from the referenced layers on every rebuild instead of being owned
// directly.
type Layer struct {
	Name         string
	Type         LayerType
	Material     string
	FillMaterial string // signal/conducting layers only
	Thickness    float64
	// LowerElevation is meaningless for non-stackup layers.
	LowerElevation float64
	IsNegative     bool
	// EtchFactor is nil when no etching is modeled.
	EtchFactor *float64
	Roughness  Roughness

	// Via layers reference a bounding layer pair instead of owning
	// elevation. Empty for ordinary layers.
	RefLayerBottom string
	RefLayerTop    string
}

// UpperElevation returns LowerElevation + Thickness.
func (l *Layer) UpperElevation() float64 {
	return l.LowerElevation + l.Thickness
}

// IsStackup reports whether the layer carries elevation.
func (l *Layer) IsStackup() bool { return l.Type.IsStackup() }

// IsVia reports whether the layer derives its elevation from a reference
// layer pair.
func (l *Layer) IsVia() bool {
	return l.RefLayerBottom != "" && l.RefLayerTop != ""
}

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	cp := *l
	if l.EtchFactor != nil {
		v := *l.EtchFactor
		cp.EtchFactor = &v
	}
	cp.Roughness = cloneRoughness(l.Roughness)
	return &cp
}

func cloneRoughness(r Roughness) Roughness {
	out := Roughness{Enabled: r.Enabled}
	out.Top = cloneSurface(r.Top)
	out.Bottom = cloneSurface(r.Bottom)
	out.Side = cloneSurface(r.Side)
	return out
}

func cloneSurface(s SurfaceRoughness) SurfaceRoughness {
	var out SurfaceRoughness
	if s.Huray != nil {
		v := *s.Huray
		out.Huray = &v
	}
	if s.Groisse != nil {
		v := *s.Groisse
		out.Groisse = &v
	}
	return out
}
