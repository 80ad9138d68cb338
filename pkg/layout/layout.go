// Package layout models the layout database consumed by the stackup and
// cutout engines: cells owning nets, primitives, padstack instances and
// components. The model is deliberately narrow. It supports enumeration,
// creation and deletion of objects plus transactional save through a Store,
// nothing more.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/edalab/lamina/pkg/geometry"
)

var (
	// ErrDuplicateNet is returned by [Cell.AddNet] when a net with the same
	// name already exists in the cell. Net names are unique per cell.
	ErrDuplicateNet = errors.New("duplicate net name")

	// ErrUnknownNet is returned when an operation references a net name
	// that does not exist in the cell.
	ErrUnknownNet = errors.New("unknown net")

	// ErrDuplicateComponent is returned by [Cell.AddComponent] when a
	// component with the same reference designator already exists.
	ErrDuplicateComponent = errors.New("duplicate component name")

	// ErrNullPolygon is returned by [Cell.AddPrimitive] when the primitive
	// outline has fewer than three vertices.
	ErrNullPolygon = errors.New("primitive polygon is null")
)

// Net is a named electrical net. Primitives and padstack instances reference
// nets by name; the Net object itself only carries identity.
type Net struct {
	ID   string // stable unique identifier
	Name string // unique within the owning cell
}

// Primitive is a single piece of conductor or dielectric geometry on a layer.
// Voids are holes cut out of the outline; they are stored with the primitive
// and survive clipping when fully contained in the clipped outline.
type Primitive struct {
	ID      string
	NetName string
	Layer   string
	Outline geometry.Polygon
	Voids   []geometry.Polygon
}

// Area returns the outline area minus the area of all voids.
func (p *Primitive) Area() float64 {
	a := p.Outline.Area()
	for _, v := range p.Voids {
		a -= v.Area()
	}
	if a < 0 {
		return 0
	}
	return a
}

// PadstackInstance is a placed via or pin. FromLayer and ToLayer name the
// layer span; pins additionally reference their owning component.
type PadstackInstance struct {
	ID        string
	Name      string
	NetName   string
	Position  geometry.Point
	FromLayer string
	ToLayer   string
	// Component is the reference designator of the owning component, empty
	// for free-standing vias.
	Component string
}

// IsPin reports whether the instance belongs to a component.
func (p *PadstackInstance) IsPin() bool { return p.Component != "" }

// ComponentType classifies components for cutout post-processing. Passive
// single-pin components (resistor, inductor, capacitor) left with one pin
// after a cutout can be removed on request.
type ComponentType int

const (
	ComponentOther ComponentType = iota
	ComponentIC
	ComponentIO
	ComponentResistor
	ComponentInductor
	ComponentCapacitor
)

// IsRLC reports whether the component is a resistor, inductor or capacitor.
func (t ComponentType) IsRLC() bool {
	return t == ComponentResistor || t == ComponentInductor || t == ComponentCapacitor
}

// String returns a short lower-case type name.
func (t ComponentType) String() string {
	switch t {
	case ComponentIC:
		return "ic"
	case ComponentIO:
		return "io"
	case ComponentResistor:
		return "resistor"
	case ComponentInductor:
		return "inductor"
	case ComponentCapacitor:
		return "capacitor"
	default:
		return "other"
	}
}

// DieOrientation describes how a die is mounted on its component.
type DieOrientation int

const (
	DieChipUp DieOrientation = iota
	DieChipDown
)

// SolderBallPlacement says which side of the component carries solder balls.
type SolderBallPlacement int

const (
	SolderAboveComponent SolderBallPlacement = iota
	SolderBelowComponent
)

// Component groups padstack-instance pins and carries the packaging
// properties the flip and 3D placement transforms manipulate.
type Component struct {
	Name string // reference designator, unique within the cell
	Type ComponentType

	// PlacementLayer is the outer signal layer the component sits on.
	PlacementLayer string

	// Solder ball model, consulted by 3D placement height reconciliation.
	SolderBallHeight    float64
	SolderBallPlacement SolderBallPlacement

	// DieOrientation is toggled when the design is flipped.
	DieOrientation DieOrientation

	pins []string // padstack instance IDs, insertion order
}

// PinCount returns the number of pins currently attached to the component.
func (c *Component) PinCount() int { return len(c.pins) }

// Pins returns the attached padstack instance IDs in insertion order.
func (c *Component) Pins() []string {
	out := make([]string, len(c.pins))
	copy(out, c.pins)
	return out
}

// Placement records where a cell instance sits inside a host layout.
// Rotation is in radians about the Z axis; Flipped mirrors the instance so
// its former top faces the host's stackup.
type Placement struct {
	Location  geometry.Point
	Elevation float64
	Rotation  float64
	Flipped   bool
}

// CellInstance is a placed reference to another cell, created by the
// placement transforms.
type CellInstance struct {
	ID        string
	Name      string
	CellName  string
	Placement Placement
}

// Cell is an in-memory layout cell. All object collections preserve
// insertion order so enumeration is deterministic, which the cutout engine
// relies on for reproducible results.
//
// Cell is not safe for concurrent mutation; the cutout engine's parallel
// phase only reads and applies mutations serially afterwards.
type Cell struct {
	Name string

	nets      []*Net
	netIndex  map[string]*Net // by name
	prims     []*Primitive
	primIndex map[string]*Primitive // by ID
	pinsts    []*PadstackInstance
	pinstIdx  map[string]*PadstackInstance // by ID
	comps     []*Component
	compIndex map[string]*Component // by name
	instances []*CellInstance
}

// NewCell returns an empty cell with the given name.
func NewCell(name string) *Cell {
	return &Cell{
		Name:      name,
		netIndex:  make(map[string]*Net),
		primIndex: make(map[string]*Primitive),
		pinstIdx:  make(map[string]*PadstackInstance),
		compIndex: make(map[string]*Component),
	}
}

// AddNet creates a net with the given name.
func (c *Cell) AddNet(name string) (*Net, error) {
	if _, ok := c.netIndex[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateNet, name)
	}
	n := &Net{ID: uuid.NewString(), Name: name}
	c.nets = append(c.nets, n)
	c.netIndex[name] = n
	return n, nil
}

// Net returns the net with the given name.
func (c *Cell) Net(name string) (*Net, bool) {
	n, ok := c.netIndex[name]
	return n, ok
}

// Nets returns all nets in insertion order.
func (c *Cell) Nets() []*Net {
	out := make([]*Net, len(c.nets))
	copy(out, c.nets)
	return out
}

// NetNames returns all net names sorted alphabetically.
func (c *Cell) NetNames() []string {
	names := make([]string, 0, len(c.nets))
	for _, n := range c.nets {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return names
}

// RemoveNet deletes the net and every primitive and padstack instance on it.
// It reports whether the net existed.
func (c *Cell) RemoveNet(name string) bool {
	if _, ok := c.netIndex[name]; !ok {
		return false
	}
	delete(c.netIndex, name)
	c.nets = filterInPlace(c.nets, func(n *Net) bool { return n.Name != name })

	for _, p := range c.prims {
		if p.NetName == name {
			delete(c.primIndex, p.ID)
		}
	}
	c.prims = filterInPlace(c.prims, func(p *Primitive) bool { return p.NetName != name })

	for _, p := range c.pinsts {
		if p.NetName == name {
			c.detachPin(p)
			delete(c.pinstIdx, p.ID)
		}
	}
	c.pinsts = filterInPlace(c.pinsts, func(p *PadstackInstance) bool { return p.NetName != name })
	return true
}

// AddPrimitive creates a primitive on the named net and layer. The net must
// already exist.
func (c *Cell) AddPrimitive(netName, layer string, outline geometry.Polygon, voids ...geometry.Polygon) (*Primitive, error) {
	if _, ok := c.netIndex[netName]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNet, netName)
	}
	if outline.IsNull() {
		return nil, ErrNullPolygon
	}
	p := &Primitive{
		ID:      uuid.NewString(),
		NetName: netName,
		Layer:   layer,
		Outline: outline.Clone().EnsureCCW(),
	}
	for _, v := range voids {
		if !v.IsNull() {
			p.Voids = append(p.Voids, v.Clone().EnsureCCW())
		}
	}
	c.prims = append(c.prims, p)
	c.primIndex[p.ID] = p
	return p, nil
}

// Primitive returns the primitive with the given ID.
func (c *Cell) Primitive(id string) (*Primitive, bool) {
	p, ok := c.primIndex[id]
	return p, ok
}

// Primitives returns all primitives in insertion order.
func (c *Cell) Primitives() []*Primitive {
	out := make([]*Primitive, len(c.prims))
	copy(out, c.prims)
	return out
}

// PrimitivesOnNets returns the primitives whose net is in names, preserving
// insertion order.
func (c *Cell) PrimitivesOnNets(names []string) []*Primitive {
	set := toSet(names)
	var out []*Primitive
	for _, p := range c.prims {
		if set[p.NetName] {
			out = append(out, p)
		}
	}
	return out
}

// RemovePrimitive deletes the primitive with the given ID, reporting whether
// it existed.
func (c *Cell) RemovePrimitive(id string) bool {
	if _, ok := c.primIndex[id]; !ok {
		return false
	}
	delete(c.primIndex, id)
	c.prims = filterInPlace(c.prims, func(p *Primitive) bool { return p.ID != id })
	return true
}

// AddPadstackInstance places a via or pin on the named net. When component is
// non-empty the instance is attached to that component as a pin.
func (c *Cell) AddPadstackInstance(name, netName string, pos geometry.Point, fromLayer, toLayer, component string) (*PadstackInstance, error) {
	if _, ok := c.netIndex[netName]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNet, netName)
	}
	p := &PadstackInstance{
		ID:        uuid.NewString(),
		Name:      name,
		NetName:   netName,
		Position:  pos,
		FromLayer: fromLayer,
		ToLayer:   toLayer,
		Component: component,
	}
	if component != "" {
		comp, ok := c.compIndex[component]
		if !ok {
			return nil, fmt.Errorf("unknown component %q", component)
		}
		comp.pins = append(comp.pins, p.ID)
	}
	c.pinsts = append(c.pinsts, p)
	c.pinstIdx[p.ID] = p
	return p, nil
}

// PadstackInstance returns the instance with the given ID.
func (c *Cell) PadstackInstance(id string) (*PadstackInstance, bool) {
	p, ok := c.pinstIdx[id]
	return p, ok
}

// PadstackInstances returns all padstack instances in insertion order.
func (c *Cell) PadstackInstances() []*PadstackInstance {
	out := make([]*PadstackInstance, len(c.pinsts))
	copy(out, c.pinsts)
	return out
}

// PadstackInstancesOnNets returns the instances whose net is in names.
func (c *Cell) PadstackInstancesOnNets(names []string) []*PadstackInstance {
	set := toSet(names)
	var out []*PadstackInstance
	for _, p := range c.pinsts {
		if set[p.NetName] {
			out = append(out, p)
		}
	}
	return out
}

// RemovePadstackInstance deletes the instance and detaches it from its
// component, reporting whether it existed.
func (c *Cell) RemovePadstackInstance(id string) bool {
	p, ok := c.pinstIdx[id]
	if !ok {
		return false
	}
	c.detachPin(p)
	delete(c.pinstIdx, id)
	c.pinsts = filterInPlace(c.pinsts, func(q *PadstackInstance) bool { return q.ID != id })
	return true
}

func (c *Cell) detachPin(p *PadstackInstance) {
	if p.Component == "" {
		return
	}
	if comp, ok := c.compIndex[p.Component]; ok {
		comp.pins = filterInPlace(comp.pins, func(id string) bool { return id != p.ID })
	}
}

// AddComponent registers a component by reference designator.
func (c *Cell) AddComponent(comp *Component) error {
	if comp.Name == "" {
		return fmt.Errorf("%w: empty name", ErrDuplicateComponent)
	}
	if _, ok := c.compIndex[comp.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateComponent, comp.Name)
	}
	c.comps = append(c.comps, comp)
	c.compIndex[comp.Name] = comp
	return nil
}

// Component returns the component with the given reference designator.
func (c *Cell) Component(name string) (*Component, bool) {
	comp, ok := c.compIndex[name]
	return comp, ok
}

// Components returns all components in insertion order.
func (c *Cell) Components() []*Component {
	out := make([]*Component, len(c.comps))
	copy(out, c.comps)
	return out
}

// RemoveComponent deletes the component. Its pins remain as free-standing
// padstack instances.
func (c *Cell) RemoveComponent(name string) bool {
	if _, ok := c.compIndex[name]; !ok {
		return false
	}
	delete(c.compIndex, name)
	c.comps = filterInPlace(c.comps, func(comp *Component) bool { return comp.Name != name })
	for _, p := range c.pinsts {
		if p.Component == name {
			p.Component = ""
		}
	}
	return true
}

// AddInstance places another cell inside this one.
func (c *Cell) AddInstance(name, cellName string, pl Placement) *CellInstance {
	inst := &CellInstance{
		ID:        uuid.NewString(),
		Name:      name,
		CellName:  cellName,
		Placement: pl,
	}
	c.instances = append(c.instances, inst)
	return inst
}

// Instances returns the placed cell instances in insertion order.
func (c *Cell) Instances() []*CellInstance {
	out := make([]*CellInstance, len(c.instances))
	copy(out, c.instances)
	return out
}

// LayerNames returns the distinct layer names referenced by primitives and
// padstack instances, sorted alphabetically.
func (c *Cell) LayerNames() []string {
	set := map[string]bool{}
	for _, p := range c.prims {
		set[p.Layer] = true
	}
	for _, p := range c.pinsts {
		if p.FromLayer != "" {
			set[p.FromLayer] = true
		}
		if p.ToLayer != "" {
			set[p.ToLayer] = true
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the cell under a new name. Object IDs are
// preserved so results can be compared across copies.
func (c *Cell) Clone(name string) *Cell {
	out := NewCell(name)
	for _, n := range c.nets {
		cp := *n
		out.nets = append(out.nets, &cp)
		out.netIndex[cp.Name] = &cp
	}
	for _, comp := range c.comps {
		cp := *comp
		cp.pins = append([]string(nil), comp.pins...)
		out.comps = append(out.comps, &cp)
		out.compIndex[cp.Name] = &cp
	}
	for _, p := range c.prims {
		cp := *p
		cp.Outline = p.Outline.Clone()
		cp.Voids = nil
		for _, v := range p.Voids {
			cp.Voids = append(cp.Voids, v.Clone())
		}
		out.prims = append(out.prims, &cp)
		out.primIndex[cp.ID] = &cp
	}
	for _, p := range c.pinsts {
		cp := *p
		out.pinsts = append(out.pinsts, &cp)
		out.pinstIdx[cp.ID] = &cp
	}
	for _, inst := range c.instances {
		cp := *inst
		out.instances = append(out.instances, &cp)
	}
	return out
}

// Stats summarizes the cell contents for logging.
func (c *Cell) Stats() string {
	return fmt.Sprintf("nets=%d primitives=%d padstacks=%d components=%d",
		len(c.nets), len(c.prims), len(c.pinsts), len(c.comps))
}

func filterInPlace[T comparable](s []T, keep func(T) bool) []T {
	out := s[:0]
	for _, v := range s {
		if keep(v) {
			out = append(out, v)
		}
	}
	// Zero the tail so removed pointers can be collected.
	var zero T
	for i := len(out); i < len(s); i++ {
		s[i] = zero
	}
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.TrimSpace(n)] = true
	}
	return set
}
