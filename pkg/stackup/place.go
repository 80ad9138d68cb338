package stackup

import (
	"context"
	"time"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/geometry"
	"github.com/edalab/lamina/pkg/layout"
	"github.com/edalab/lamina/pkg/observability"
)

// Names of the air layers inserted to make room for solder balls.
const (
	topAirLayer    = "Top_Air"
	bottomAirLayer = "Bottom_air"
)

// AdjustSolderDielectrics makes the outer dielectric faces account for
// solder-ball height. For each face hosting components with solder balls,
// the outermost dielectric layer is grown to the maximum ball height; when
// the outermost stackup layer is not a dielectric, an air layer of that
// height is inserted instead.
func (s *Stackup) AdjustSolderDielectrics(cell *layout.Cell) error {
	if cell == nil {
		return nil
	}
	signals := s.SignalLayers()
	if len(signals) == 0 {
		return nil
	}
	topSignal := signals[0].Name
	bottomSignal := signals[len(signals)-1].Name

	var maxTop, maxBottom float64
	for _, comp := range cell.Components() {
		if comp.SolderBallHeight <= 0 {
			continue
		}
		switch comp.PlacementLayer {
		case topSignal:
			if comp.SolderBallHeight > maxTop {
				maxTop = comp.SolderBallHeight
			}
		case bottomSignal:
			if comp.SolderBallHeight > maxBottom {
				maxBottom = comp.SolderBallHeight
			}
		}
	}

	if maxTop > 0 {
		if err := s.growFace(true, maxTop); err != nil {
			return err
		}
	}
	if maxBottom > 0 {
		if err := s.growFace(false, maxBottom); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stackup) growFace(top bool, height float64) error {
	layers := s.Collection().StackupLayers()
	outer := layers[0]
	name, method := topAirLayer, InsertTop()
	if !top {
		outer = layers[len(layers)-1]
		name, method = bottomAirLayer, InsertBottom()
	}

	if outer.Type == LayerDielectric {
		if outer.Thickness >= height {
			return nil
		}
		grown := outer.Clone()
		grown.Thickness = height
		return s.UpdateLayer(grown)
	}

	if existing, ok := s.Collection().FindLayer(name); ok {
		if existing.Thickness >= height {
			return nil
		}
		grown := existing.Clone()
		grown.Thickness = height
		return s.UpdateLayer(grown)
	}

	_, err := s.AddLayer(AddLayerOptions{
		Name:      name,
		Method:    method,
		Type:      LayerDielectric,
		Material:  "air",
		Thickness: height,
	})
	return err
}

// PlaceInLayout embeds sourceCell as an instance of targetCell at a 2D rigid
// transform. The source's solder dielectrics are adjusted first so the
// merged stack accounts for ball height; the placement reference layer is
// the target's topmost or bottommost signal layer per placeOnTop.
func PlaceInLayout(source *Stackup, sourceCell *layout.Cell, target *Stackup, targetCell *layout.Cell,
	angle, offsetX, offsetY float64, flipped, placeOnTop bool) (*layout.CellInstance, error) {

	if err := source.AdjustSolderDielectrics(sourceCell); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransformAbort, "adjust solder dielectrics")
	}

	signals := target.SignalLayers()
	if len(signals) == 0 {
		return nil, errors.New(errors.ErrCodeTransformAbort, "target stackup has no signal layers")
	}
	ref := signals[0]
	if !placeOnTop {
		ref = signals[len(signals)-1]
	}

	inst := targetCell.AddInstance(sourceCell.Name, sourceCell.Name, layout.Placement{
		Location:  geometry.Pt(offsetX, offsetY),
		Elevation: ref.LowerElevation,
		Rotation:  angle,
		Flipped:   flipped,
	})
	return inst, nil
}

// Place3DOptions configures PlaceInLayout3D. SolderHeight <= 0 requests
// inference from the component solder-ball models on the mounting faces.
type Place3DOptions struct {
	Angle        float64
	OffsetX      float64
	OffsetY      float64
	Flipped      bool
	PlaceOnTop   bool
	SolderHeight float64
}

// PlaceInLayout3D embeds sourceCell in targetCell with an explicit
// out-of-plane elevation computed from the two stackups' outer elevations
// plus the solder-ball gap. When no solder height is supplied it is inferred
// from both mounting faces, taking the maximum ball height found; solder
// "PEC" port geometry on the scanned layers is removed as part of the
// inference.
func PlaceInLayout3D(source *Stackup, sourceCell *layout.Cell, target *Stackup, targetCell *layout.Cell,
	opts Place3DOptions) (inst *layout.CellInstance, err error) {

	start := time.Now()
	observability.Stackup().OnTransformStart(context.Background(), "place3d")
	defer func() {
		observability.Stackup().OnTransformComplete(context.Background(), "place3d", time.Since(start), err)
	}()

	srcLim, ok := source.StackupLimits(false)
	if !ok {
		return nil, errors.New(errors.ErrCodeTransformAbort, "source stackup is empty")
	}
	tgtLim, ok := target.StackupLimits(false)
	if !ok {
		return nil, errors.New(errors.ErrCodeTransformAbort, "target stackup is empty")
	}

	solder := opts.SolderHeight
	if solder <= 0 {
		// The source's mounting face is its top when flipped, its bottom
		// otherwise; the target's is chosen by placeOnTop.
		srcSolder := inferSolderHeight(source, sourceCell, opts.Flipped)
		tgtSolder := inferSolderHeight(target, targetCell, opts.PlaceOnTop)
		solder = srcSolder
		if tgtSolder > solder {
			solder = tgtSolder
		}
	}

	// Solve the mounting-face constraint for the vertical offset. An
	// unflipped instance maps elevation z to z+offset, a flipped one to
	// offset-z.
	var elevation float64
	switch {
	case opts.PlaceOnTop && !opts.Flipped:
		elevation = tgtLim.TopElevation + solder - srcLim.BottomElevation
	case opts.PlaceOnTop && opts.Flipped:
		elevation = tgtLim.TopElevation + solder + srcLim.TopElevation
	case !opts.PlaceOnTop && !opts.Flipped:
		elevation = tgtLim.BottomElevation - solder - srcLim.TopElevation
	default:
		elevation = tgtLim.BottomElevation - solder + srcLim.BottomElevation
	}

	inst = targetCell.AddInstance(sourceCell.Name, sourceCell.Name, layout.Placement{
		Location:  geometry.Pt(opts.OffsetX, opts.OffsetY),
		Elevation: elevation,
		Rotation:  opts.Angle,
		Flipped:   opts.Flipped,
	})
	return inst, nil
}

// inferSolderHeight scans signal layers from the given face inward while the
// face elevation still matches, accumulating the maximum solder-ball height
// among components placed on those layers. Solder port geometry on net
// "PEC" is deleted from each scanned layer.
func inferSolderHeight(s *Stackup, cell *layout.Cell, fromTop bool) float64 {
	if cell == nil {
		return 0
	}
	signals := s.SignalLayers()
	if len(signals) == 0 {
		return 0
	}
	if !fromTop {
		reversed := make([]*Layer, len(signals))
		for i, l := range signals {
			reversed[len(signals)-1-i] = l
		}
		signals = reversed
	}

	faceElev := signals[0].UpperElevation()
	if !fromTop {
		faceElev = signals[0].LowerElevation
	}

	var height float64
	for _, l := range signals {
		elev := l.UpperElevation()
		if !fromTop {
			elev = l.LowerElevation
		}
		if elev != faceElev {
			break
		}
		for _, comp := range cell.Components() {
			if comp.PlacementLayer == l.Name && comp.SolderBallHeight > height {
				height = comp.SolderBallHeight
			}
		}
		removePECPrimitives(cell, l.Name)
	}
	return height
}

func removePECPrimitives(cell *layout.Cell, layer string) {
	var doomed []string
	for _, p := range cell.Primitives() {
		if p.Layer == layer && p.NetName == "PEC" {
			doomed = append(doomed, p.ID)
		}
	}
	for _, id := range doomed {
		cell.RemovePrimitive(id)
	}
}
