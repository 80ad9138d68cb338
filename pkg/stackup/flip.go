package stackup

import (
	"context"
	"time"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/layout"
	"github.com/edalab/lamina/pkg/observability"
)

// RadBoxLayer is the sentinel radiation-box layer. Flip passes it through
// unmodified.
const RadBoxLayer = "RadBox"

// FlipDesign mirrors the stackup top-to-bottom and updates cell objects to
// match. For every stackup layer the new lower elevation is the old maximum
// upper elevation minus the old upper elevation, top/bottom surface
// associations are inverted and the layer order is reversed. Via layers get
// their reference pair swapped before their span is re-derived. Components
// carrying solder balls have their placement side toggled; IC components
// additionally toggle die orientation. Every padstack instance's start/stop
// layer pair is swapped.
//
// All mutations are staged first and applied only after every step has
// succeeded, so a failed flip leaves both the stackup and the cell
// untouched. Passing a nil cell flips the stackup alone.
func (s *Stackup) FlipDesign(cell *layout.Cell) (err error) {
	start := time.Now()
	observability.Stackup().OnTransformStart(context.Background(), "flip")
	defer func() {
		observability.Stackup().OnTransformComplete(context.Background(), "flip", time.Since(start), err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Collection()
	stack := cur.StackupLayers()
	if len(stack) == 0 {
		return errors.New(errors.ErrCodeTransformAbort, "cannot flip an empty stackup")
	}

	maxUpper := 0.0
	found := false
	for _, l := range stack {
		if l.Name == RadBoxLayer {
			continue
		}
		if !found || l.UpperElevation() > maxUpper {
			maxUpper = l.UpperElevation()
			found = true
		}
	}
	if !found {
		return errors.New(errors.ErrCodeTransformAbort, "stackup contains only sentinel layers")
	}

	// Stage the mirrored collection: reversed order, remapped elevations.
	next := &LayerCollection{mode: cur.Mode()}
	for i := len(stack) - 1; i >= 0; i-- {
		l := stack[i].Clone()
		switch {
		case l.Name == RadBoxLayer:
			// Sentinel passthrough.
		case l.IsVia():
			l.RefLayerBottom, l.RefLayerTop = l.RefLayerTop, l.RefLayerBottom
		default:
			l.LowerElevation = maxUpper - stack[i].UpperElevation()
			l.Roughness.Top, l.Roughness.Bottom = l.Roughness.Bottom, l.Roughness.Top
		}
		next.layers = append(next.layers, l)
	}
	for _, l := range cur.NonStackupLayers() {
		next.nonStackup = append(next.nonStackup, l.Clone())
	}
	next.resolveVias()

	// Commit the collection, then the (infallible) per-object mutations.
	s.swap("flip", next)

	if cell != nil {
		for _, comp := range cell.Components() {
			if comp.SolderBallHeight > 0 {
				if comp.SolderBallPlacement == layout.SolderAboveComponent {
					comp.SolderBallPlacement = layout.SolderBelowComponent
				} else {
					comp.SolderBallPlacement = layout.SolderAboveComponent
				}
			}
			if comp.Type == layout.ComponentIC {
				if comp.DieOrientation == layout.DieChipUp {
					comp.DieOrientation = layout.DieChipDown
				} else {
					comp.DieOrientation = layout.DieChipUp
				}
			}
		}
		for _, p := range cell.PadstackInstances() {
			p.FromLayer, p.ToLayer = p.ToLayer, p.FromLayer
		}
	}
	return nil
}
