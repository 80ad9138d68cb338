package stackup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edalab/lamina/pkg/errors"
)

// Mode determines how new layers are positioned inside a collection.
type Mode int

const (
	// Laminate stacks layers in strict bottom-to-top insertion order;
	// elevations are derived from the order.
	Laminate Mode = iota
	// Overlapping positions layers by explicit elevation; order is derived
	// from the elevations.
	Overlapping
	// MultiZone is zone-qualified; for layering purposes it behaves like
	// Laminate.
	MultiZone
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Laminate:
		return "Laminate"
	case Overlapping:
		return "Overlapping"
	case MultiZone:
		return "MultiZone"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a mode name onto its Mode, ignoring case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "laminate":
		return Laminate, nil
	case "overlapping":
		return Overlapping, nil
	case "multizone":
		return MultiZone, nil
	default:
		return Laminate, errors.Newf(errors.ErrCodeInvalidMode, "unknown collection mode %q", s)
	}
}

type insertKind int

const (
	insertTop insertKind = iota
	insertBottom
	insertAbove
	insertBelow
	insertAtElevation
)

// InsertMethod selects where a layer is placed during insertion or
// repositioning. Use the constructors; the zero value inserts on top.
type InsertMethod struct {
	kind      insertKind
	base      string
	elevation float64
}

// InsertTop places the layer above every existing stackup layer.
func InsertTop() InsertMethod { return InsertMethod{kind: insertTop} }

// InsertBottom places the layer below every existing stackup layer.
func InsertBottom() InsertMethod { return InsertMethod{kind: insertBottom} }

// InsertAbove places the layer directly above the named base layer.
func InsertAbove(base string) InsertMethod { return InsertMethod{kind: insertAbove, base: base} }

// InsertBelow places the layer directly below the named base layer.
func InsertBelow(base string) InsertMethod { return InsertMethod{kind: insertBelow, base: base} }

// InsertAtElevation places the layer at an explicit lower elevation.
// Valid only for Overlapping collections.
func InsertAtElevation(e float64) InsertMethod {
	return InsertMethod{kind: insertAtElevation, elevation: e}
}

// LayerCollection is an immutable ordered set of layers plus a mode.
// Stackup layers are kept top-to-bottom (index 0 is the top layer);
// non-stackup layers trail in insertion order. Structural edits never mutate
// a collection: every With* method builds a new collection which the owner
// swaps in atomically, so readers never observe a half-built state.
type LayerCollection struct {
	mode       Mode
	layers     []*Layer // stackup layers, top-to-bottom
	nonStackup []*Layer
}

// NewLayerCollection returns an empty collection in the given mode.
func NewLayerCollection(mode Mode) *LayerCollection {
	return &LayerCollection{mode: mode}
}

// Mode returns the collection mode.
func (lc *LayerCollection) Mode() Mode { return lc.mode }

// StackupLayers returns the signal and dielectric layers top-to-bottom.
func (lc *LayerCollection) StackupLayers() []*Layer {
	out := make([]*Layer, len(lc.layers))
	copy(out, lc.layers)
	return out
}

// SignalLayers returns the signal layers top-to-bottom.
func (lc *LayerCollection) SignalLayers() []*Layer {
	var out []*Layer
	for _, l := range lc.layers {
		if l.Type == LayerSignal {
			out = append(out, l)
		}
	}
	return out
}

// NonStackupLayers returns the layers that carry no elevation.
func (lc *LayerCollection) NonStackupLayers() []*Layer {
	out := make([]*Layer, len(lc.nonStackup))
	copy(out, lc.nonStackup)
	return out
}

// AllLayers returns stackup layers top-to-bottom followed by non-stackup
// layers.
func (lc *LayerCollection) AllLayers() []*Layer {
	out := make([]*Layer, 0, len(lc.layers)+len(lc.nonStackup))
	out = append(out, lc.layers...)
	out = append(out, lc.nonStackup...)
	return out
}

// FindLayer returns the layer with the given name.
func (lc *LayerCollection) FindLayer(name string) (*Layer, bool) {
	for _, l := range lc.layers {
		if l.Name == name {
			return l, true
		}
	}
	for _, l := range lc.nonStackup {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// Contains reports whether a layer with the given name exists.
func (lc *LayerCollection) Contains(name string) bool {
	_, ok := lc.FindLayer(name)
	return ok
}

// Len returns the total layer count.
func (lc *LayerCollection) Len() int { return len(lc.layers) + len(lc.nonStackup) }

func (lc *LayerCollection) clone() *LayerCollection {
	out := &LayerCollection{mode: lc.mode}
	for _, l := range lc.layers {
		out.layers = append(out.layers, l.Clone())
	}
	for _, l := range lc.nonStackup {
		out.nonStackup = append(out.nonStackup, l.Clone())
	}
	return out
}

// WithLayerAdded builds a new collection with layer inserted per method.
func (lc *LayerCollection) WithLayerAdded(layer *Layer, method InsertMethod) (*LayerCollection, error) {
	if lc.Contains(layer.Name) {
		return nil, errors.Newf(errors.ErrCodeDuplicateName, "layer %q already exists", layer.Name)
	}
	next := lc.clone()
	l := layer.Clone()

	if !l.IsStackup() {
		next.nonStackup = append(next.nonStackup, l)
		return next, nil
	}

	switch method.kind {
	case insertTop:
		next.layers = append([]*Layer{l}, next.layers...)
	case insertBottom:
		next.layers = append(next.layers, l)
	case insertAbove, insertBelow:
		idx := -1
		for i, existing := range next.layers {
			if existing.Name == method.base {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errors.Newf(errors.ErrCodeLayerNotFound, "base layer %q not found", method.base)
		}
		// Top-to-bottom order: "above" means a smaller index.
		at := idx
		if method.kind == insertBelow {
			at = idx + 1
		}
		next.layers = append(next.layers[:at], append([]*Layer{l}, next.layers[at:]...)...)
	case insertAtElevation:
		if next.mode != Overlapping {
			return nil, errors.Newf(errors.ErrCodeInvalidMode,
				"elevation insertion requires Overlapping mode, collection is %s", next.mode)
		}
		l.LowerElevation = method.elevation
		next.layers = append(next.layers, l)
	}

	next.recompute()
	return next, nil
}

// WithLayerRemoved builds a new collection omitting the named layer. The
// boolean reports whether the layer existed.
func (lc *LayerCollection) WithLayerRemoved(name string) (*LayerCollection, bool) {
	if !lc.Contains(name) {
		return lc, false
	}
	next := &LayerCollection{mode: lc.mode}
	for _, l := range lc.layers {
		if l.Name != name {
			next.layers = append(next.layers, l.Clone())
		}
	}
	for _, l := range lc.nonStackup {
		if l.Name != name {
			next.nonStackup = append(next.nonStackup, l.Clone())
		}
	}
	next.recompute()
	return next, true
}

// WithLayerRenamed builds a new collection with the layer renamed. Via
// references and fill references held by other layers are left untouched;
// callers remapping references do so through WithLayerUpdated.
func (lc *LayerCollection) WithLayerRenamed(oldName, newName string) (*LayerCollection, error) {
	if lc.Contains(newName) {
		return nil, errors.Newf(errors.ErrCodeDuplicateName, "layer %q already exists", newName)
	}
	next := lc.clone()
	l, ok := next.findMutable(oldName)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeLayerNotFound, "layer %q not found", oldName)
	}
	l.Name = newName
	return next, nil
}

// WithLayerUpdated builds a new collection with the named layer's attributes
// replaced by layer (matched by layer.Name). Position is preserved.
func (lc *LayerCollection) WithLayerUpdated(layer *Layer) (*LayerCollection, error) {
	next := lc.clone()
	replaced := false
	for i, l := range next.layers {
		if l.Name == layer.Name {
			next.layers[i] = layer.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		for i, l := range next.nonStackup {
			if l.Name == layer.Name {
				next.nonStackup[i] = layer.Clone()
				replaced = true
				break
			}
		}
	}
	if !replaced {
		return nil, errors.Newf(errors.ErrCodeLayerNotFound, "layer %q not found", layer.Name)
	}
	next.recompute()
	return next, nil
}

// WithLayerMoved builds a new collection with the named stackup layer
// removed and re-inserted per method, attributes preserved.
func (lc *LayerCollection) WithLayerMoved(name string, method InsertMethod) (*LayerCollection, error) {
	layer, ok := lc.FindLayer(name)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeLayerNotFound, "layer %q not found", name)
	}
	if !layer.IsStackup() {
		return nil, errors.Newf(errors.ErrCodeInvalidLayer, "layer %q is not a stackup layer", name)
	}
	without, _ := lc.WithLayerRemoved(name)
	return without.WithLayerAdded(layer, method)
}

func (lc *LayerCollection) findMutable(name string) (*Layer, bool) {
	for _, l := range lc.layers {
		if l.Name == name {
			return l, true
		}
	}
	for _, l := range lc.nonStackup {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// recompute re-derives elevation state after a structural change.
//
// Laminate and MultiZone treat layer order as the source of truth and assign
// lower elevations bottom-up from zero. Overlapping treats explicit
// elevations as the source of truth and re-sorts the order to match. Via
// layers are resolved last from their reference pair in both modes.
func (lc *LayerCollection) recompute() {
	switch lc.mode {
	case Overlapping:
		sort.SliceStable(lc.layers, func(i, j int) bool {
			return lc.layers[i].LowerElevation > lc.layers[j].LowerElevation
		})
	default:
		elev := 0.0
		for i := len(lc.layers) - 1; i >= 0; i-- {
			l := lc.layers[i]
			if l.IsVia() {
				continue
			}
			l.LowerElevation = elev
			elev += l.Thickness
		}
	}
	lc.resolveVias()
}

// resolveVias derives each via layer's span from its reference pair: the
// via runs from the bottom reference's upper elevation to the top
// reference's lower elevation.
func (lc *LayerCollection) resolveVias() {
	for _, l := range lc.layers {
		if !l.IsVia() {
			continue
		}
		bottom, okB := lc.FindLayer(l.RefLayerBottom)
		top, okT := lc.FindLayer(l.RefLayerTop)
		if !okB || !okT {
			continue
		}
		l.LowerElevation = bottom.UpperElevation()
		span := top.LowerElevation - bottom.UpperElevation()
		if span < 0 {
			span = 0
		}
		l.Thickness = span
	}
}
