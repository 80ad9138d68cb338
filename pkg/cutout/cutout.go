// Package cutout reduces a layout to the geometry relevant to a set of
// signal and reference nets inside a bounded region, producing a sub-layout
// suitable for independent simulation.
//
// The engine prunes off-net objects, derives (or accepts) a clip region,
// classifies the retained reference geometry against the region in parallel,
// and applies all mutations serially after a barrier. The backing cell is
// not safe for concurrent mutation; workers only read.
package cutout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/edalab/lamina/pkg/cache"
	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/geometry"
	"github.com/edalab/lamina/pkg/layout"
	"github.com/edalab/lamina/pkg/observability"
)

// Default parameter values, shared by CLI and API entry points.
const (
	// DefaultExpansion is the extent expansion distance in meters.
	DefaultExpansion = 0.002
	// DefaultWorkers is the classification worker count.
	DefaultWorkers = 4
	// DefaultExtentUnits is the unit of custom extent coordinates.
	DefaultExtentUnits = "mm"
)

// DefaultReferenceNets is used when no reference nets are given.
var DefaultReferenceNets = []string{"GND"}

// Options configures one cutout run.
type Options struct {
	// SignalNets select the nets whose geometry defines the region of
	// interest. Required unless CustomExtent is set.
	SignalNets []string
	// ReferenceNets are retained and clipped at the region boundary.
	ReferenceNets []string
	// ExtentType selects the region derivation; ignored with CustomExtent.
	ExtentType ExtentType
	// ExpansionSize is the region expansion distance in meters. Nil
	// applies DefaultExpansion; point at zero to disable expansion.
	ExpansionSize *float64
	// RoundCorners rounds convex corners during expansion.
	RoundCorners bool
	// DefeatureSize drops conforming-extent members below this area (m²);
	// zero disables defeaturing.
	DefeatureSize float64
	// OutputCell, when set, writes the cutout into a clone of this name
	// and leaves the source cell untouched; empty mutates in place.
	OutputCell string
	// Workers is the classification worker count.
	Workers int
	// CustomExtent supplies an explicit clip polygon instead of deriving
	// one from signal geometry.
	CustomExtent geometry.Polygon
	// CustomExtentUnits is the length unit of CustomExtent coordinates.
	CustomExtentUnits string
	// IncludePartial keeps padstack instances whose position falls inside
	// the region's bounding box even when outside the exact region.
	IncludePartial bool
	// KeepVoids re-attaches voids that survive clipping. Nil defaults to
	// true.
	KeepVoids *bool
	// RemoveSinglePinRLC deletes resistor/inductor/capacitor components
	// left with a single pin.
	RemoveSinglePinRLC bool
}

// ValidateAndSetDefaults checks the options and fills defaults in place.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.SignalNets) == 0 && o.CustomExtent.IsNull() {
		return errors.New(errors.ErrCodeNetNotFound, "signal nets or a custom extent are required")
	}
	if o.ExpansionSize == nil {
		e := DefaultExpansion
		o.ExpansionSize = &e
	}
	if *o.ExpansionSize < 0 {
		return errors.New(errors.ErrCodeInvalidExtentType, "expansion size must be non-negative")
	}
	if o.KeepVoids == nil {
		k := true
		o.KeepVoids = &k
	}
	if len(o.ReferenceNets) == 0 {
		o.ReferenceNets = append([]string(nil), DefaultReferenceNets...)
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.CustomExtentUnits == "" {
		o.CustomExtentUnits = DefaultExtentUnits
	}
	return nil
}

// Stats reports object counts and per-phase durations of one run.
type Stats struct {
	NetsDeleted       int
	PadstacksDeleted  int
	PrimitivesDeleted int
	PrimitivesClipped int
	PrimitivesCreated int
	ComponentsDeleted int

	PruneTime    time.Duration
	ExtentTime   time.Duration
	ClassifyTime time.Duration
	ApplyTime    time.Duration

	ExtentCacheHit bool
}

// Result holds the cutout output.
type Result struct {
	// Cell is the resulting layout: the source cell for in-place runs, an
	// independent clone for save-as runs.
	Cell *layout.Cell
	// Extent is the clip region used, in meters.
	Extent geometry.PolygonSet
	Stats  Stats
}

// Engine runs cutouts. The zero value is not usable; use NewEngine.
// An Engine is stateless between runs and safe for sequential reuse.
type Engine struct {
	store  layout.Store
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

// NewEngine creates a cutout engine. The store may be nil when save-as
// persistence is not needed; a nil cache disables extent caching; a nil
// logger falls back to log.Default().
func NewEngine(store layout.Store, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Engine {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{store: store, cache: c, keyer: keyer, logger: logger}
}

// Run executes a cutout on cell. With Options.OutputCell set the source is
// cloned first and the clone is mutated and saved; otherwise the source cell
// is mutated in place. An empty clip region aborts the run after pruning:
// off-net deletions already applied are not rolled back.
func (e *Engine) Run(ctx context.Context, cell *layout.Cell, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	target := cell
	if opts.OutputCell != "" {
		target = cell.Clone(opts.OutputCell)
	}
	res := &Result{Cell: target}

	// Phase 1: prune everything outside the net union.
	pruneStart := time.Now()
	e.prune(target, opts, &res.Stats)
	res.Stats.PruneTime = time.Since(pruneStart)
	observability.Cutout().OnPruneComplete(ctx, res.Stats.NetsDeleted,
		res.Stats.PadstacksDeleted, res.Stats.PrimitivesDeleted)
	e.logger.Info("pruned off-net geometry",
		"nets", res.Stats.NetsDeleted,
		"padstacks", res.Stats.PadstacksDeleted,
		"primitives", res.Stats.PrimitivesDeleted)

	// Phase 2: clip region.
	extentStart := time.Now()
	extent, err := e.resolveExtent(ctx, target, opts, &res.Stats)
	res.Stats.ExtentTime = time.Since(extentStart)
	observability.Cutout().OnExtentComputed(ctx, opts.ExtentType.String(),
		len(extent), res.Stats.ExtentTime, err)
	if err != nil {
		return nil, err
	}
	res.Extent = extent
	e.logger.Info("computed clip region",
		"type", opts.ExtentType.String(),
		"members", len(extent),
		"cached", res.Stats.ExtentCacheHit)

	// Phase 3: parallel classification, serial apply.
	classifyStart := time.Now()
	e.classifyAndApply(ctx, target, extent, opts, &res.Stats)
	res.Stats.ClassifyTime = time.Since(classifyStart) - res.Stats.ApplyTime
	observability.Cutout().OnClassifyComplete(ctx,
		res.Stats.PrimitivesDeleted, res.Stats.PrimitivesClipped, res.Stats.ClassifyTime, nil)

	// Phase 4: component cleanup.
	e.cleanupComponents(target, opts, &res.Stats)

	if opts.OutputCell != "" && e.store != nil {
		if err := e.store.Save(ctx, target); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStore, "save cutout cell")
		}
	}

	e.logger.Info("cutout complete",
		"cell", target.Name,
		"clipped", res.Stats.PrimitivesClipped,
		"created", res.Stats.PrimitivesCreated,
		"components_deleted", res.Stats.ComponentsDeleted)
	return res, nil
}

// prune deletes every net outside the signal/reference union, cascading to
// its primitives and padstack instances.
func (e *Engine) prune(cell *layout.Cell, opts Options, stats *Stats) {
	keep := map[string]bool{}
	for _, n := range opts.SignalNets {
		keep[n] = true
	}
	for _, n := range opts.ReferenceNets {
		keep[n] = true
	}

	for _, net := range cell.Nets() {
		if keep[net.Name] {
			continue
		}
		stats.PadstacksDeleted += len(cell.PadstackInstancesOnNets([]string{net.Name}))
		stats.PrimitivesDeleted += len(cell.PrimitivesOnNets([]string{net.Name}))
		cell.RemoveNet(net.Name)
		stats.NetsDeleted++
	}
}

// resolveExtent returns the clip region: the custom polygon scaled to
// meters, a cached extent, or a freshly computed one.
func (e *Engine) resolveExtent(ctx context.Context, cell *layout.Cell, opts Options, stats *Stats) (geometry.PolygonSet, error) {
	if !opts.CustomExtent.IsNull() {
		poly, err := scaleCustomExtent(opts.CustomExtent, opts.CustomExtentUnits)
		if err != nil {
			return nil, err
		}
		hull := geometry.ConvexHull(poly)
		if hull.IsNull() {
			return nil, errors.New(errors.ErrCodeExtentEmpty, "custom extent polygon is degenerate")
		}
		return geometry.PolygonSet{hull}, nil
	}

	key := e.keyer.ExtentKey(cell.Name, cache.ExtentKeyOpts{
		SignalNets:    opts.SignalNets,
		ReferenceNets: opts.ReferenceNets,
		ExtentType:    opts.ExtentType.String(),
		Expansion:     *opts.ExpansionSize,
		RoundCorners:  opts.RoundCorners,
		GeometryHash:  signalGeometryHash(cell, opts.SignalNets),
	})
	if data, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		if extent, err := decodeExtent(data); err == nil {
			stats.ExtentCacheHit = true
			observability.Cache().OnCacheHit(ctx, "extent")
			return extent, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "extent")

	extent, err := computeExtent(cell, opts.SignalNets, opts.ExtentType,
		*opts.ExpansionSize, opts.RoundCorners, opts.DefeatureSize)
	if err != nil {
		return nil, err
	}

	if data, err := encodeExtent(extent); err == nil {
		if err := e.cache.Set(ctx, key, data, 24*time.Hour); err == nil {
			observability.Cache().OnCacheSet(ctx, "extent", len(data))
		}
	}
	return extent, nil
}

// primAction is one staged primitive mutation, produced by a worker and
// applied after the barrier.
type primAction struct {
	deleteID string
	creates  []stagedPrim
}

type stagedPrim struct {
	net     string
	layer   string
	outline geometry.Polygon
	voids   []geometry.Polygon
}

// classifyAndApply partitions the reference geometry across workers for
// read-only classification, joins, then applies all mutations serially.
func (e *Engine) classifyAndApply(ctx context.Context, cell *layout.Cell,
	extent geometry.PolygonSet, opts Options, stats *Stats) {

	refPinsts := cell.PadstackInstancesOnNets(opts.ReferenceNets)
	refPrims := cell.PrimitivesOnNets(opts.ReferenceNets)
	observability.Cutout().OnClassifyStart(ctx, len(refPinsts)+len(refPrims), opts.Workers)

	extentBB := extent.BoundingBox()

	// Padstack classification: one slot per instance, no shared writes.
	pinstDoomed := make([]bool, len(refPinsts))
	runParallel(opts.Workers, len(refPinsts), func(i int) {
		p := refPinsts[i]
		inside := extent.Contains(p.Position)
		if !inside && opts.IncludePartial {
			inside = extentBB.Contains(p.Position)
		}
		pinstDoomed[i] = !inside
	})

	// Primitive classification.
	actions := make([]primAction, len(refPrims))
	runParallel(opts.Workers, len(refPrims), func(i int) {
		actions[i] = classifyPrimitive(refPrims[i], extent, *opts.KeepVoids)
	})

	// Barrier passed: apply mutations single-threaded.
	applyStart := time.Now()
	for i, doomed := range pinstDoomed {
		if doomed {
			cell.RemovePadstackInstance(refPinsts[i].ID)
			stats.PadstacksDeleted++
		}
	}
	for _, a := range actions {
		if a.deleteID != "" {
			cell.RemovePrimitive(a.deleteID)
			stats.PrimitivesDeleted++
		}
		for _, c := range a.creates {
			if _, err := cell.AddPrimitive(c.net, c.layer, c.outline, c.voids...); err != nil {
				e.logger.Error("failed to re-create clipped primitive",
					"net", c.net, "layer", c.layer, "err", err)
				continue
			}
			stats.PrimitivesCreated++
		}
		if a.deleteID != "" && len(a.creates) > 0 {
			stats.PrimitivesClipped++
		}
	}
	stats.ApplyTime = time.Since(applyStart)
}

// classifyPrimitive computes the staged mutation for one reference
// primitive against the clip region. Pure function of its inputs.
func classifyPrimitive(p *layout.Primitive, extent geometry.PolygonSet, keepVoids bool) primAction {
	switch geometry.ClassifySet(p.Outline, extent) {
	case geometry.Contained:
		return primAction{}
	case geometry.Disjoint:
		return primAction{deleteID: p.ID}
	}

	// Partial overlap: clip the outline and redistribute voids over the
	// resulting pieces.
	pieces := geometry.ClipSet(p.Outline, extent)
	if len(pieces) == 0 {
		return primAction{deleteID: p.ID}
	}

	action := primAction{deleteID: p.ID}
	for _, piece := range pieces {
		sp := stagedPrim{net: p.NetName, layer: p.Layer, outline: piece}
		if keepVoids {
			for _, v := range p.Voids {
				switch geometry.Classify(v, piece) {
				case geometry.Contained:
					sp.voids = append(sp.voids, v.Clone())
				case geometry.Overlapping:
					if clipped := geometry.ClipConvex(v, piece); !clipped.IsNull() {
						sp.voids = append(sp.voids, clipped)
					}
				}
			}
		}
		action.creates = append(action.creates, sp)
	}
	return action
}

// cleanupComponents deletes components with no pins left, plus single-pin
// RLC components when requested.
func (e *Engine) cleanupComponents(cell *layout.Cell, opts Options, stats *Stats) {
	for _, comp := range cell.Components() {
		switch {
		case comp.PinCount() == 0:
			cell.RemoveComponent(comp.Name)
			stats.ComponentsDeleted++
		case opts.RemoveSinglePinRLC && comp.PinCount() == 1 && comp.Type.IsRLC():
			for _, pin := range comp.Pins() {
				cell.RemovePadstackInstance(pin)
				stats.PadstacksDeleted++
			}
			cell.RemoveComponent(comp.Name)
			stats.ComponentsDeleted++
		}
	}
}

// runParallel fans n index-addressed tasks out over workers and joins.
// Tasks must not share mutable state.
func runParallel(workers, n int, task func(i int)) {
	if n == 0 {
		return
	}
	if workers > n {
		workers = n
	}
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				task(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// signalGeometryHash hashes the signal-net geometry so extent cache entries
// invalidate when the geometry changes.
func signalGeometryHash(cell *layout.Cell, signalNets []string) string {
	var flat [][]float64
	for _, p := range cell.PrimitivesOnNets(signalNets) {
		row := make([]float64, 0, len(p.Outline)*2)
		for _, pt := range p.Outline {
			row = append(row, pt.X, pt.Y)
		}
		flat = append(flat, row)
	}
	for _, p := range cell.PadstackInstancesOnNets(signalNets) {
		flat = append(flat, []float64{p.Position.X, p.Position.Y})
	}
	data, _ := json.Marshal(flat)
	return cache.Hash(data)
}

func encodeExtent(extent geometry.PolygonSet) ([]byte, error) {
	out := make([][][2]float64, len(extent))
	for i, poly := range extent {
		out[i] = make([][2]float64, len(poly))
		for j, pt := range poly {
			out[i][j] = [2]float64{pt.X, pt.Y}
		}
	}
	return json.Marshal(out)
}

func decodeExtent(data []byte) (geometry.PolygonSet, error) {
	var raw [][][2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty cached extent")
	}
	out := make(geometry.PolygonSet, len(raw))
	for i, poly := range raw {
		out[i] = make(geometry.Polygon, len(poly))
		for j, pt := range poly {
			out[i][j] = geometry.Pt(pt[0], pt[1])
		}
	}
	return out, nil
}
