package stackup

import (
	"math"
	"testing"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/geometry"
	"github.com/edalab/lamina/pkg/layout"
)

func flipTestCell(t *testing.T) *layout.Cell {
	t.Helper()
	c := layout.NewCell("board")
	if _, err := c.AddNet("GND"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddComponent(&layout.Component{
		Name: "U1", Type: layout.ComponentIC, PlacementLayer: "TOP",
		SolderBallHeight:    100e-6,
		SolderBallPlacement: layout.SolderAboveComponent,
		DieOrientation:      layout.DieChipUp,
	}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddComponent(&layout.Component{
		Name: "R1", Type: layout.ComponentResistor, PlacementLayer: "BOT",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddPadstackInstance("via1", "GND", geometry.Pt(0, 0), "TOP", "BOT", ""); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFlipDesignElevations(t *testing.T) {
	s := threeLayerStackup(t)
	asym := s.StackupLayers()
	// Make the stack asymmetric so the mirror is observable.
	grown := asym[0].Clone() // TOP
	grown.Thickness = 80e-6
	if err := s.UpdateLayer(grown); err != nil {
		t.Fatal(err)
	}

	before := map[string][2]float64{}
	maxUpper := 0.0
	for _, l := range s.StackupLayers() {
		before[l.Name] = [2]float64{l.LowerElevation, l.UpperElevation()}
		if l.UpperElevation() > maxUpper {
			maxUpper = l.UpperElevation()
		}
	}

	if err := s.FlipDesign(nil); err != nil {
		t.Fatalf("FlipDesign: %v", err)
	}

	for _, l := range s.StackupLayers() {
		wantLower := maxUpper - before[l.Name][1]
		if math.Abs(l.LowerElevation-wantLower) > eps {
			t.Errorf("%s lower = %v, want %v", l.Name, l.LowerElevation, wantLower)
		}
	}
	// Order is reversed: BOT on top now.
	if s.StackupLayers()[0].Name != "BOT" {
		t.Errorf("top layer after flip = %s, want BOT", s.StackupLayers()[0].Name)
	}
	checkElevationOrder(t, s)
}

func TestFlipDesignInvolution(t *testing.T) {
	s := threeLayerStackup(t)
	before := snapshot(s)

	if err := s.FlipDesign(nil); err != nil {
		t.Fatal(err)
	}
	if err := s.FlipDesign(nil); err != nil {
		t.Fatal(err)
	}

	after := snapshot(s)
	if len(before) != len(after) {
		t.Fatal("layer count changed across double flip")
	}
	for i := range before {
		if before[i].name != after[i].name || math.Abs(before[i].lower-after[i].lower) > eps {
			t.Errorf("layer %d: %v -> %v", i, before[i], after[i])
		}
	}
}

func TestFlipDesignComponentAndPadstackRemap(t *testing.T) {
	s := threeLayerStackup(t)
	cell := flipTestCell(t)

	if err := s.FlipDesign(cell); err != nil {
		t.Fatal(err)
	}

	u1, _ := cell.Component("U1")
	if u1.SolderBallPlacement != layout.SolderBelowComponent {
		t.Error("solder placement not toggled")
	}
	if u1.DieOrientation != layout.DieChipDown {
		t.Error("die orientation not toggled")
	}
	// R1 has no solder balls and is not an IC: untouched.
	r1, _ := cell.Component("R1")
	if r1.SolderBallPlacement != layout.SolderAboveComponent || r1.DieOrientation != layout.DieChipUp {
		t.Error("passive component should pass through unchanged")
	}

	via := cell.PadstackInstances()[0]
	if via.FromLayer != "BOT" || via.ToLayer != "TOP" {
		t.Errorf("padstack span = %s->%s, want BOT->TOP", via.FromLayer, via.ToLayer)
	}
}

func TestFlipDesignViaLayer(t *testing.T) {
	s := threeLayerStackup(t)
	via := &Layer{
		Name: "V1", Type: LayerSignal, RefLayerBottom: "BOT", RefLayerTop: "TOP",
	}
	next, err := s.Collection().WithLayerAdded(via, InsertAbove("D1"))
	if err != nil {
		t.Fatal(err)
	}
	s.current.Store(next)

	if err := s.FlipDesign(nil); err != nil {
		t.Fatal(err)
	}

	flipped, _ := s.Collection().FindLayer("V1")
	if flipped.RefLayerBottom != "TOP" || flipped.RefLayerTop != "BOT" {
		t.Errorf("via refs = %s/%s, want swapped", flipped.RefLayerBottom, flipped.RefLayerTop)
	}
	// Span re-derived from the swapped upper reference: it must still sit
	// between the two signal layers' new elevations.
	bot, _ := s.Collection().FindLayer("TOP") // now at the bottom
	if math.Abs(flipped.LowerElevation-bot.UpperElevation()) > eps {
		t.Errorf("via lower = %v, want %v", flipped.LowerElevation, bot.UpperElevation())
	}
}

func TestFlipDesignEmptyStackup(t *testing.T) {
	s := newTestStackup(Laminate)
	err := s.FlipDesign(nil)
	if errors.GetCode(err) != errors.ErrCodeTransformAbort {
		t.Errorf("err = %v, want TransformAbort code", err)
	}
}

func TestAdjustSolderDielectrics(t *testing.T) {
	t.Run("inserts air layer when outer layer is metal", func(t *testing.T) {
		s := threeLayerStackup(t)
		cell := flipTestCell(t)

		if err := s.AdjustSolderDielectrics(cell); err != nil {
			t.Fatal(err)
		}
		air, ok := s.Collection().FindLayer("Top_Air")
		if !ok {
			t.Fatal("Top_Air layer not inserted")
		}
		if math.Abs(air.Thickness-100e-6) > eps {
			t.Errorf("air thickness = %v, want 100e-6", air.Thickness)
		}
		if s.StackupLayers()[0].Name != "Top_Air" {
			t.Error("air layer should be the new top")
		}
	})

	t.Run("grows existing outer dielectric", func(t *testing.T) {
		s := threeLayerStackup(t)
		addDielectric(t, s, "SM", 20e-6, InsertTop())
		cell := flipTestCell(t)

		if err := s.AdjustSolderDielectrics(cell); err != nil {
			t.Fatal(err)
		}
		sm, _ := s.Collection().FindLayer("SM")
		if math.Abs(sm.Thickness-100e-6) > eps {
			t.Errorf("outer dielectric thickness = %v, want 100e-6", sm.Thickness)
		}
		if _, ok := s.Collection().FindLayer("Top_Air"); ok {
			t.Error("no air layer expected when outer dielectric was resized")
		}
	})
}

func TestPlaceInLayout(t *testing.T) {
	src := threeLayerStackup(t)
	tgt := threeLayerStackup(t)
	srcCell := flipTestCell(t)
	tgtCell := layout.NewCell("system")

	inst, err := PlaceInLayout(src, srcCell, tgt, tgtCell, math.Pi/2, 1e-3, 2e-3, false, true)
	if err != nil {
		t.Fatalf("PlaceInLayout: %v", err)
	}
	if len(tgtCell.Instances()) != 1 {
		t.Fatal("instance not registered in target cell")
	}
	if inst.Placement.Rotation != math.Pi/2 || inst.Placement.Flipped {
		t.Errorf("placement = %+v", inst.Placement)
	}
	// Solder dielectrics were adjusted on the source first.
	if _, ok := src.Collection().FindLayer("Top_Air"); !ok {
		t.Error("source solder dielectric adjustment missing")
	}
}

func TestPlaceInLayout3DElevation(t *testing.T) {
	src := threeLayerStackup(t) // spans 0..200um
	tgt := threeLayerStackup(t)
	tgtCell := layout.NewCell("system")

	tests := []struct {
		name       string
		flipped    bool
		placeOnTop bool
		want       float64
	}{
		{"top unflipped", false, true, 200e-6 + 50e-6 - 0},
		{"top flipped", true, true, 200e-6 + 50e-6 + 200e-6},
		{"bottom unflipped", false, false, 0 - 50e-6 - 200e-6},
		{"bottom flipped", true, false, 0 - 50e-6 + 0},
	}

	for _, tt := range tests {
		inst, err := PlaceInLayout3D(src, layout.NewCell("chip"), tgt, tgtCell, Place3DOptions{
			Flipped: tt.flipped, PlaceOnTop: tt.placeOnTop, SolderHeight: 50e-6,
		})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if math.Abs(inst.Placement.Elevation-tt.want) > eps {
			t.Errorf("%s: elevation = %v, want %v", tt.name, inst.Placement.Elevation, tt.want)
		}
	}
}

func TestPlaceInLayout3DSolderInference(t *testing.T) {
	src := threeLayerStackup(t)
	tgt := threeLayerStackup(t)
	srcCell := flipTestCell(t) // U1 on TOP with 100um balls
	tgtCell := layout.NewCell("system")

	// PEC port geometry on the scanned face is removed during inference.
	if _, err := srcCell.AddNet("PEC"); err != nil {
		t.Fatal(err)
	}
	if _, err := srcCell.AddPrimitive("PEC", "TOP", geometry.Polygon{
		geometry.Pt(0, 0), geometry.Pt(1e-3, 0), geometry.Pt(1e-3, 1e-3),
	}); err != nil {
		t.Fatal(err)
	}

	inst, err := PlaceInLayout3D(src, srcCell, tgt, tgtCell, Place3DOptions{
		Flipped: true, PlaceOnTop: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Inferred solder height is U1's 100um: offset = 200 + 100 + 200 um.
	want := 200e-6 + 100e-6 + 200e-6
	if math.Abs(inst.Placement.Elevation-want) > eps {
		t.Errorf("elevation = %v, want %v", inst.Placement.Elevation, want)
	}
	if got := len(srcCell.PrimitivesOnNets([]string{"PEC"})); got != 0 {
		t.Errorf("PEC primitives left: %d", got)
	}
}
