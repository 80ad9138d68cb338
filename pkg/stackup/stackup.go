package stackup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/layout"
	"github.com/edalab/lamina/pkg/materials"
	"github.com/edalab/lamina/pkg/observability"
)

// Default materials referenced when a caller leaves them unset.
const (
	DefaultConductor  = "copper"
	DefaultDielectric = "fr4_epoxy"
)

// Stackup owns the live layer collection of one layout. Writers serialize on
// an internal mutex; every structural edit builds a new collection and swaps
// the handle atomically, so concurrent readers always see a complete
// collection.
type Stackup struct {
	mu        sync.Mutex // serializes writers
	current   atomic.Pointer[LayerCollection]
	materials *materials.Library
	logger    *log.Logger
}

// New creates a stackup manager in the given mode. A nil library falls back
// to the default material set; a nil logger falls back to log.Default().
func New(mode Mode, lib *materials.Library, logger *log.Logger) *Stackup {
	if lib == nil {
		lib = materials.DefaultLibrary()
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Stackup{materials: lib, logger: logger}
	s.current.Store(NewLayerCollection(mode))
	return s
}

// Collection returns the current layer collection. The returned collection
// is immutable; it stays valid after later edits swap in a successor.
func (s *Stackup) Collection() *LayerCollection {
	return s.current.Load()
}

// swap publishes next as the current collection. Callers hold s.mu.
func (s *Stackup) swap(op string, next *LayerCollection) {
	s.current.Store(next)
	observability.Stackup().OnCollectionRebuild(context.Background(), op, next.Len())
}

// Materials returns the material library backing the stackup.
func (s *Stackup) Materials() *materials.Library {
	return s.materials
}

// Mode returns the current collection mode.
func (s *Stackup) Mode() Mode {
	return s.Collection().Mode()
}

// SetMode rebuilds the collection in the new mode. Layer names and count are
// preserved; position state is re-derived per the new mode's rules.
func (s *Stackup) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swap("set_mode", rebuildInMode(s.Collection(), mode))
}

// AddLayerOptions configures a single AddLayer call. Zero-valued Material
// and FillMaterial fall back to the package defaults for the layer type.
type AddLayerOptions struct {
	Name            string
	Method          InsertMethod
	Type            LayerType
	Material        string
	FillMaterial    string
	Thickness       float64
	EtchFactor      *float64
	IsNegative      bool
	EnableRoughness bool
}

// AddLayer inserts a new layer. It fails with ErrCodeDuplicateName when the
// name is taken and with ErrCodeInvalidMode when elevation insertion is used
// outside Overlapping mode. An unknown material is not an error: a warning
// is logged and the nearest case-insensitive library match is substituted.
func (s *Stackup) AddLayer(opts AddLayerOptions) (*Layer, error) {
	if opts.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidLayer, "layer name must not be empty")
	}

	layer := &Layer{
		Name:       opts.Name,
		Type:       opts.Type,
		Thickness:  opts.Thickness,
		IsNegative: opts.IsNegative,
		EtchFactor: opts.EtchFactor,
		Roughness:  Roughness{Enabled: opts.EnableRoughness},
	}
	layer.Material = s.resolveMaterial(opts.Material, defaultMaterial(opts.Type))
	if opts.Type == LayerSignal || opts.Type == LayerConducting {
		layer.FillMaterial = s.resolveMaterial(opts.FillMaterial, DefaultDielectric)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.Collection().WithLayerAdded(layer, opts.Method)
	if err != nil {
		return nil, err
	}
	s.swap("add_layer", next)
	added, _ := next.FindLayer(opts.Name)
	return added, nil
}

// resolveMaterial maps a requested material name onto a registered one,
// warning and substituting the nearest match when absent.
func (s *Stackup) resolveMaterial(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	m, exact := s.materials.Resolve(name)
	if exact {
		return m.Name
	}
	if m.Name == "" {
		s.logger.Warn("material not found in library, reference left unresolved", "material", name)
		return name
	}
	s.logger.Warn("material not found in library, substituting nearest match",
		"material", name, "substitute", m.Name)
	return m.Name
}

func defaultMaterial(t LayerType) string {
	if t == LayerSignal || t == LayerConducting {
		return DefaultConductor
	}
	return DefaultDielectric
}

// RemoveLayer rebuilds the collection omitting the named layer. It reports
// whether the layer existed.
func (s *Stackup) RemoveLayer(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.Collection().WithLayerRemoved(name)
	if !ok {
		return false
	}
	s.swap("remove_layer", next)
	return true
}

// RenameLayer changes a layer's name, keeping its position and attributes.
func (s *Stackup) RenameLayer(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.Collection().WithLayerRenamed(oldName, newName)
	if err != nil {
		return err
	}
	s.swap("rename_layer", next)
	return nil
}

// UpdateLayer replaces the attributes of the layer matching layer.Name.
func (s *Stackup) UpdateLayer(layer *Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.Collection().WithLayerUpdated(layer)
	if err != nil {
		return err
	}
	s.swap("update_layer", next)
	return nil
}

// MoveLayer repositions a stackup layer per method, attributes preserved.
func (s *Stackup) MoveLayer(name string, method InsertMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.Collection().WithLayerMoved(name, method)
	if err != nil {
		return err
	}
	s.swap("move_layer", next)
	return nil
}

// SignalLayers returns the signal layers top-to-bottom.
func (s *Stackup) SignalLayers() []*Layer { return s.Collection().SignalLayers() }

// StackupLayers returns signal and dielectric layers top-to-bottom.
func (s *Stackup) StackupLayers() []*Layer { return s.Collection().StackupLayers() }

// NonStackupLayers returns the layers that carry no elevation.
func (s *Stackup) NonStackupLayers() []*Layer { return s.Collection().NonStackupLayers() }

// Limits describes the outer faces of the stackup.
type Limits struct {
	TopLayer        string
	TopElevation    float64 // upper elevation of the top layer
	BottomLayer     string
	BottomElevation float64 // lower elevation of the bottom layer
}

// StackupLimits returns the outermost layers and their elevations, chosen by
// max upper / min lower elevation. With onlyMetals set, only signal layers
// are considered.
func (s *Stackup) StackupLimits(onlyMetals bool) (Limits, bool) {
	var layers []*Layer
	if onlyMetals {
		layers = s.Collection().SignalLayers()
	} else {
		layers = s.Collection().StackupLayers()
	}
	if len(layers) == 0 {
		return Limits{}, false
	}
	lim := Limits{
		TopLayer: layers[0].Name, TopElevation: layers[0].UpperElevation(),
		BottomLayer: layers[0].Name, BottomElevation: layers[0].LowerElevation,
	}
	for _, l := range layers[1:] {
		if l.UpperElevation() > lim.TopElevation {
			lim.TopLayer, lim.TopElevation = l.Name, l.UpperElevation()
		}
		if l.LowerElevation < lim.BottomElevation {
			lim.BottomLayer, lim.BottomElevation = l.Name, l.LowerElevation
		}
	}
	return lim, true
}

// LayoutThickness returns the total stackup thickness: the top layer's upper
// elevation minus the bottom layer's lower elevation, taken in collection
// order. Zero for stackups with fewer than one layer.
func (s *Stackup) LayoutThickness() float64 {
	layers := s.Collection().StackupLayers()
	if len(layers) == 0 {
		return 0
	}
	top := layers[0]
	bottom := layers[len(layers)-1]
	return top.UpperElevation() - bottom.LowerElevation
}

// RefreshLayerCollection rebuilds the collection from its own layer set
// using mode-appropriate insertion. Running it twice without intervening
// edits yields an equivalent collection.
func (s *Stackup) RefreshLayerCollection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swap("refresh", rebuildInMode(s.Collection(), s.Collection().Mode()))
}

// rebuildInMode re-inserts every layer of src into a fresh collection in
// mode: elevation-based insertion for Overlapping, bottom append otherwise,
// with non-stackup layers trailing.
func rebuildInMode(src *LayerCollection, mode Mode) *LayerCollection {
	next := NewLayerCollection(mode)
	for _, l := range src.StackupLayers() {
		method := InsertBottom()
		if mode == Overlapping {
			method = InsertAtElevation(l.LowerElevation)
		}
		with, err := next.WithLayerAdded(l, method)
		if err != nil {
			// Duplicate names cannot occur when rebuilding from a valid
			// collection; skip defensively.
			continue
		}
		next = with
	}
	for _, l := range src.NonStackupLayers() {
		with, err := next.WithLayerAdded(l, InsertBottom())
		if err != nil {
			continue
		}
		next = with
	}
	return next
}

// SymmetricOptions configures CreateSymmetricStackup. Zero thickness values
// fall back to common defaults.
type SymmetricOptions struct {
	LayerCount          int // number of signal layers, even, >= 2
	InnerThickness      float64
	OuterThickness      float64
	DielectricThickness float64
	DielectricMaterial  string
	ConductorMaterial   string
	Soldermask          bool
	SoldermaskThickness float64
}

const (
	defaultInnerThickness      = 17e-6
	defaultOuterThickness      = 50e-6
	defaultDielectricThickness = 100e-6
	defaultSoldermaskThickness = 20e-6
)

// CreateSymmetricStackup populates an empty stackup with LayerCount signal
// layers named BOT, L2..L(n-1), TOP separated by dielectrics D1..D(n-1)
// numbered from the top. Optional soldermask layers SMT/SMB wrap the outer
// faces.
func (s *Stackup) CreateSymmetricStackup(opts SymmetricOptions) error {
	if opts.LayerCount < 2 || opts.LayerCount%2 != 0 {
		return errors.Newf(errors.ErrCodeInvalidLayer,
			"symmetric stackup requires an even layer count >= 2, got %d", opts.LayerCount)
	}
	if s.Collection().Len() != 0 {
		return errors.New(errors.ErrCodeInvalidLayer, "symmetric stackup requires an empty collection")
	}
	if opts.InnerThickness == 0 {
		opts.InnerThickness = defaultInnerThickness
	}
	if opts.OuterThickness == 0 {
		opts.OuterThickness = defaultOuterThickness
	}
	if opts.DielectricThickness == 0 {
		opts.DielectricThickness = defaultDielectricThickness
	}
	if opts.SoldermaskThickness == 0 {
		opts.SoldermaskThickness = defaultSoldermaskThickness
	}

	signalName := func(i int) string {
		// i counts signal layers from the top, starting at 1.
		switch i {
		case 1:
			return "TOP"
		case opts.LayerCount:
			return "BOT"
		default:
			return fmt.Sprintf("L%d", i)
		}
	}
	signalThickness := func(i int) float64 {
		if i == 1 || i == opts.LayerCount {
			return opts.OuterThickness
		}
		return opts.InnerThickness
	}

	// Build bottom-up: each AddLayer lands on top of the previous one.
	for i := opts.LayerCount; i >= 1; i-- {
		if _, err := s.AddLayer(AddLayerOptions{
			Name:      signalName(i),
			Method:    InsertTop(),
			Type:      LayerSignal,
			Material:  opts.ConductorMaterial,
			Thickness: signalThickness(i),
		}); err != nil {
			return err
		}
		if i > 1 {
			if _, err := s.AddLayer(AddLayerOptions{
				Name:      fmt.Sprintf("D%d", i-1),
				Method:    InsertTop(),
				Type:      LayerDielectric,
				Material:  orDefault(opts.DielectricMaterial, DefaultDielectric),
				Thickness: opts.DielectricThickness,
			}); err != nil {
				return err
			}
		}
	}

	if opts.Soldermask {
		if _, err := s.AddLayer(AddLayerOptions{
			Name: "SMT", Method: InsertTop(), Type: LayerDielectric,
			Material: "solder_mask", Thickness: opts.SoldermaskThickness,
		}); err != nil {
			return err
		}
		if _, err := s.AddLayer(AddLayerOptions{
			Name: "SMB", Method: InsertBottom(), Type: LayerDielectric,
			Material: "solder_mask", Thickness: opts.SoldermaskThickness,
		}); err != nil {
			return err
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ResidualCopperArea returns, per signal layer, the fraction of the layer's
// primitive bounding region covered by conductor geometry in cell. Layers
// without geometry are omitted.
func (s *Stackup) ResidualCopperArea(cell *layout.Cell) map[string]float64 {
	out := map[string]float64{}
	for _, l := range s.SignalLayers() {
		var covered float64
		bounds := geometryBounds{}
		for _, p := range cell.Primitives() {
			if p.Layer != l.Name {
				continue
			}
			covered += p.Area()
			bounds.add(p)
		}
		total := bounds.area()
		if total > 0 {
			out[l.Name] = covered / total
		}
	}
	return out
}

type geometryBounds struct {
	set        bool
	minX, minY float64
	maxX, maxY float64
}

func (b *geometryBounds) add(p *layout.Primitive) {
	bb := p.Outline.BoundingBox()
	if !b.set {
		b.set = true
		b.minX, b.minY, b.maxX, b.maxY = bb.Min.X, bb.Min.Y, bb.Max.X, bb.Max.Y
		return
	}
	if bb.Min.X < b.minX {
		b.minX = bb.Min.X
	}
	if bb.Min.Y < b.minY {
		b.minY = bb.Min.Y
	}
	if bb.Max.X > b.maxX {
		b.maxX = bb.Max.X
	}
	if bb.Max.Y > b.maxY {
		b.maxY = bb.Max.Y
	}
}

func (b *geometryBounds) area() float64 {
	if !b.set {
		return 0
	}
	return (b.maxX - b.minX) * (b.maxY - b.minY)
}
