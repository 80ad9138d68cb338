package cutout

import (
	"context"
	"io"
	"math"
	"sort"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/edalab/lamina/pkg/geometry"
	"github.com/edalab/lamina/pkg/layout"
)

func newTestEngine() *Engine {
	return NewEngine(nil, nil, nil, log.New(io.Discard))
}

func f64p(v float64) *float64 { return &v }
func boolp(b bool) *bool      { return &b }

func square(cx, cy, half float64) geometry.Polygon {
	return geometry.Polygon{
		geometry.Pt(cx-half, cy-half),
		geometry.Pt(cx+half, cy-half),
		geometry.Pt(cx+half, cy+half),
		geometry.Pt(cx-half, cy+half),
	}
}

// cutoutCell builds a board fragment: a NET1 trace near the origin, a large
// GND plane with a void, a far-away NET2 trace, and reference vias both near
// and far from the signal geometry.
func cutoutCell(t *testing.T) *layout.Cell {
	t.Helper()
	cell := layout.NewCell("board")
	for _, n := range []string{"NET1", "NET2", "GND"} {
		if _, err := cell.AddNet(n); err != nil {
			t.Fatalf("AddNet(%s): %v", n, err)
		}
	}

	// Signal trace from (0,0) to (10e-3,0), 1mm wide.
	trace := geometry.Polygon{
		geometry.Pt(0, -0.5e-3),
		geometry.Pt(10e-3, -0.5e-3),
		geometry.Pt(10e-3, 0.5e-3),
		geometry.Pt(0, 0.5e-3),
	}
	if _, err := cell.AddPrimitive("NET1", "TOP", trace); err != nil {
		t.Fatalf("add trace: %v", err)
	}

	// Ground plane 100mm x 100mm centered on origin, with a 2mm void at
	// (20mm, 20mm).
	plane := square(0, 0, 50e-3)
	void := square(20e-3, 20e-3, 1e-3)
	if _, err := cell.AddPrimitive("GND", "BOT", plane, void); err != nil {
		t.Fatalf("add plane: %v", err)
	}

	// Off-net trace far away.
	if _, err := cell.AddPrimitive("NET2", "TOP", square(40e-3, 40e-3, 1e-3)); err != nil {
		t.Fatalf("add net2: %v", err)
	}

	// Reference vias: one inside the region of interest, one far outside.
	if _, err := cell.AddPadstackInstance("V_NEAR", "GND", geometry.Pt(5e-3, 0), "TOP", "BOT", ""); err != nil {
		t.Fatalf("add near via: %v", err)
	}
	if _, err := cell.AddPadstackInstance("V_FAR", "GND", geometry.Pt(45e-3, 45e-3), "TOP", "BOT", ""); err != nil {
		t.Fatalf("add far via: %v", err)
	}
	return cell
}

func netNames(cell *layout.Cell) []string {
	names := cell.NetNames()
	sort.Strings(names)
	return names
}

func findPinst(cell *layout.Cell, name string) *layout.PadstackInstance {
	for _, p := range cell.PadstackInstances() {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func TestRunConvexHullScenario(t *testing.T) {
	cell := cutoutCell(t)
	eng := newTestEngine()

	res, err := eng.Run(context.Background(), cell, Options{
		SignalNets:    []string{"NET1"},
		ReferenceNets: []string{"GND"},
		ExtentType:    ConvexHull,
		ExpansionSize: f64p(0),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := netNames(res.Cell)
	want := []string{"GND", "NET1"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("surviving nets = %v, want %v", got, want)
	}
	if res.Stats.NetsDeleted != 1 {
		t.Errorf("NetsDeleted = %d, want 1", res.Stats.NetsDeleted)
	}

	// The plane straddles the hull and must have been clipped down.
	planeArea := 0.0
	for _, p := range res.Cell.PrimitivesOnNets([]string{"GND"}) {
		planeArea += p.Area()
	}
	if planeArea >= (100e-3)*(100e-3)-1e-9 {
		t.Errorf("ground plane not clipped, area = %g", planeArea)
	}

	// The far via lies outside any hull of the trace; the near one is on it.
	if findPinst(res.Cell, "V_FAR") != nil {
		t.Error("far reference via survived the cutout")
	}
	if findPinst(res.Cell, "V_NEAR") == nil {
		t.Error("near reference via was removed")
	}
}

func TestRunContainment(t *testing.T) {
	cell := cutoutCell(t)
	eng := newTestEngine()

	res, err := eng.Run(context.Background(), cell, Options{
		SignalNets:    []string{"NET1"},
		ReferenceNets: []string{"GND"},
		ExtentType:    BoundingBox,
		ExpansionSize: f64p(2e-3),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	region := res.Extent
	for _, p := range res.Cell.Primitives() {
		bb := geometry.PolygonSet{p.Outline}.BoundingBox()
		if !bb.Intersects(region.BoundingBox()) {
			t.Errorf("primitive %s on %s survives outside the clip region", p.ID, p.Layer)
		}
	}
	for _, pi := range res.Cell.PadstackInstances() {
		if !region.BoundingBox().Contains(pi.Position) {
			t.Errorf("padstack %s survives outside the clip region", pi.Name)
		}
	}
}

func TestRunIdempotent(t *testing.T) {
	opts := Options{
		SignalNets:    []string{"NET1"},
		ReferenceNets: []string{"GND"},
		ExtentType:    Conforming,
		ExpansionSize: f64p(2e-3),
	}

	first := cutoutCell(t)
	eng := newTestEngine()
	res1, err := eng.Run(context.Background(), first, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	res2, err := eng.Run(context.Background(), res1.Cell, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if got, want := len(res2.Cell.Primitives()), len(res1.Cell.Primitives()); got != want {
		t.Errorf("primitive count changed on re-run: %d != %d", got, want)
	}
	area := func(c *layout.Cell) float64 {
		total := 0.0
		for _, p := range c.Primitives() {
			total += p.Area()
		}
		return total
	}
	a1, a2 := area(res1.Cell), area(res2.Cell)
	if math.Abs(a1-a2) > 1e-12 {
		t.Errorf("total area changed on re-run: %g != %g", a1, a2)
	}
}

func TestRunCustomExtentUnits(t *testing.T) {
	cell := cutoutCell(t)
	eng := newTestEngine()

	// A 30mm x 30mm box around the origin, given in millimeters.
	res, err := eng.Run(context.Background(), cell, Options{
		SignalNets:        []string{"NET1"},
		ReferenceNets:     []string{"GND"},
		CustomExtent:      square(0, 0, 15),
		CustomExtentUnits: "mm",
		KeepVoids:         boolp(true),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	bb := res.Extent.BoundingBox()
	if math.Abs(bb.Width()-30e-3) > 1e-9 || math.Abs(bb.Height()-30e-3) > 1e-9 {
		t.Fatalf("custom extent = %g x %g m, want 0.03 x 0.03", bb.Width(), bb.Height())
	}

	// The plane clips to the box and its void at (20mm,20mm) falls outside.
	for _, p := range res.Cell.PrimitivesOnNets([]string{"GND"}) {
		if len(p.Voids) != 0 {
			t.Errorf("void outside the clip region survived on %s", p.ID)
		}
	}
}

func TestRunVoidHandling(t *testing.T) {
	cell := layout.NewCell("voids")
	for _, n := range []string{"SIG", "GND"} {
		if _, err := cell.AddNet(n); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := cell.AddPrimitive("SIG", "TOP", square(0, 0, 5e-3)); err != nil {
		t.Fatal(err)
	}
	// Plane with a void fully inside the region of interest.
	if _, err := cell.AddPrimitive("GND", "BOT", square(0, 0, 50e-3), square(0, 0, 1e-3)); err != nil {
		t.Fatal(err)
	}

	run := func(keep bool) *Result {
		res, err := newTestEngine().Run(context.Background(), cell.Clone("copy"), Options{
			SignalNets:    []string{"SIG"},
			ReferenceNets: []string{"GND"},
			ExtentType:    BoundingBox,
			KeepVoids:     boolp(keep),
		})
		if err != nil {
			t.Fatalf("Run(keep=%v): %v", keep, err)
		}
		return res
	}

	countVoids := func(res *Result) int {
		n := 0
		for _, p := range res.Cell.PrimitivesOnNets([]string{"GND"}) {
			n += len(p.Voids)
		}
		return n
	}

	if got := countVoids(run(true)); got != 1 {
		t.Errorf("voids with KeepVoids = %d, want 1", got)
	}
	if got := countVoids(run(false)); got != 0 {
		t.Errorf("voids without KeepVoids = %d, want 0", got)
	}
}

func TestRunComponentCleanup(t *testing.T) {
	cell := cutoutCell(t)

	// R9 is a resistor whose only pin sits far outside the region.
	if err := cell.AddComponent(&layout.Component{Name: "R9", Type: layout.ComponentResistor}); err != nil {
		t.Fatal(err)
	}
	if _, err := cell.AddPadstackInstance("R9-1", "GND", geometry.Pt(48e-3, 48e-3), "TOP", "TOP", "R9"); err != nil {
		t.Fatal(err)
	}
	// R8 keeps one pin inside and loses the other.
	if err := cell.AddComponent(&layout.Component{Name: "R8", Type: layout.ComponentResistor}); err != nil {
		t.Fatal(err)
	}
	if _, err := cell.AddPadstackInstance("R8-1", "GND", geometry.Pt(5e-3, 0.2e-3), "TOP", "TOP", "R8"); err != nil {
		t.Fatal(err)
	}
	if _, err := cell.AddPadstackInstance("R8-2", "GND", geometry.Pt(47e-3, 0), "TOP", "TOP", "R8"); err != nil {
		t.Fatal(err)
	}

	res, err := newTestEngine().Run(context.Background(), cell, Options{
		SignalNets:         []string{"NET1"},
		ReferenceNets:      []string{"GND"},
		ExtentType:         BoundingBox,
		ExpansionSize:      f64p(2e-3),
		RemoveSinglePinRLC: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, ok := res.Cell.Component("R9"); ok {
		t.Error("zero-pin component R9 survived")
	}
	if _, ok := res.Cell.Component("R8"); ok {
		t.Error("single-pin RLC component R8 survived with RemoveSinglePinRLC")
	}
	if findPinst(res.Cell, "R8-1") != nil {
		t.Error("pin of removed single-pin RLC survived")
	}
	if res.Stats.ComponentsDeleted != 2 {
		t.Errorf("ComponentsDeleted = %d, want 2", res.Stats.ComponentsDeleted)
	}
}

func TestRunSaveAsLeavesSourceIntact(t *testing.T) {
	cell := cutoutCell(t)
	before := len(cell.Primitives())

	res, err := newTestEngine().Run(context.Background(), cell, Options{
		SignalNets:    []string{"NET1"},
		ReferenceNets: []string{"GND"},
		ExtentType:    ConvexHull,
		OutputCell:    "board_cut",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Cell == cell {
		t.Fatal("OutputCell did not clone the source")
	}
	if res.Cell.Name != "board_cut" {
		t.Errorf("result cell name = %q, want board_cut", res.Cell.Name)
	}
	if len(cell.Primitives()) != before {
		t.Error("source cell mutated during save-as cutout")
	}
}

func TestOptionsValidation(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err == nil {
		t.Fatal("expected error with no signal nets and no custom extent")
	}

	o = Options{SignalNets: []string{"A"}}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if len(o.ReferenceNets) != 1 || o.ReferenceNets[0] != "GND" {
		t.Errorf("ReferenceNets = %v, want [GND]", o.ReferenceNets)
	}
	if o.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", o.Workers, DefaultWorkers)
	}
	if o.CustomExtentUnits != "mm" {
		t.Errorf("CustomExtentUnits = %q, want mm", o.CustomExtentUnits)
	}
	// Unset expansion and void handling take the documented defaults at
	// every entry point, not just the CLI flag layer.
	if o.ExpansionSize == nil || *o.ExpansionSize != DefaultExpansion {
		t.Errorf("ExpansionSize = %v, want %v", o.ExpansionSize, DefaultExpansion)
	}
	if o.KeepVoids == nil || !*o.KeepVoids {
		t.Error("KeepVoids should default to true")
	}

	o = Options{SignalNets: []string{"A"}, ExpansionSize: f64p(-1)}
	if err := o.ValidateAndSetDefaults(); err == nil {
		t.Fatal("expected error for negative expansion")
	}
}

func TestParseExtentType(t *testing.T) {
	cases := []struct {
		in   string
		want ExtentType
		ok   bool
	}{
		{"Conforming", Conforming, true},
		{"ConvexHull", ConvexHull, true},
		{"BoundingBox", BoundingBox, true},
		{"boundingbox", BoundingBox, true},
		{"Polygon", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseExtentType(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("ParseExtentType(%q) err = %v", tc.in, err)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseExtentType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
