package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/geometry"
)

// Store persists and retrieves layout cells. Save is transactional per cell:
// a failed save leaves any previously stored version intact.
type Store interface {
	// Load retrieves the cell with the given name.
	Load(ctx context.Context, name string) (*Cell, error)
	// Save persists the cell under its own name, replacing any stored version.
	Save(ctx context.Context, cell *Cell) error
	// List returns the names of all stored cells.
	List(ctx context.Context) ([]string, error)
	// Delete removes the stored cell, ignoring absent names.
	Delete(ctx context.Context, name string) error
	// Close releases store resources.
	Close() error
}

// cellDoc is the serialized form shared by the file and Mongo stores.
type cellDoc struct {
	Name       string         `json:"name" bson:"name"`
	Nets       []netDoc       `json:"nets" bson:"nets"`
	Primitives []primDoc      `json:"primitives" bson:"primitives"`
	Padstacks  []pinstDoc     `json:"padstacks" bson:"padstacks"`
	Components []componentDoc `json:"components" bson:"components"`
	Instances  []instanceDoc  `json:"instances,omitempty" bson:"instances,omitempty"`
}

type netDoc struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

type pointDoc struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

type primDoc struct {
	ID      string       `json:"id" bson:"id"`
	Net     string       `json:"net" bson:"net"`
	Layer   string       `json:"layer" bson:"layer"`
	Outline []pointDoc   `json:"outline" bson:"outline"`
	Voids   [][]pointDoc `json:"voids,omitempty" bson:"voids,omitempty"`
}

type pinstDoc struct {
	ID        string   `json:"id" bson:"id"`
	Name      string   `json:"name" bson:"name"`
	Net       string   `json:"net" bson:"net"`
	Position  pointDoc `json:"position" bson:"position"`
	FromLayer string   `json:"from_layer" bson:"from_layer"`
	ToLayer   string   `json:"to_layer" bson:"to_layer"`
	Component string   `json:"component,omitempty" bson:"component,omitempty"`
}

type componentDoc struct {
	Name           string  `json:"name" bson:"name"`
	Type           string  `json:"type" bson:"type"`
	PlacementLayer string  `json:"placement_layer,omitempty" bson:"placement_layer,omitempty"`
	SolderHeight   float64 `json:"solder_height,omitempty" bson:"solder_height,omitempty"`
	SolderBelow    bool    `json:"solder_below,omitempty" bson:"solder_below,omitempty"`
	ChipDown       bool    `json:"chip_down,omitempty" bson:"chip_down,omitempty"`
}

type instanceDoc struct {
	ID        string   `json:"id" bson:"id"`
	Name      string   `json:"name" bson:"name"`
	Cell      string   `json:"cell" bson:"cell"`
	Location  pointDoc `json:"location" bson:"location"`
	Elevation float64  `json:"elevation" bson:"elevation"`
	Rotation  float64  `json:"rotation" bson:"rotation"`
	Flipped   bool     `json:"flipped" bson:"flipped"`
}

func encodeCell(c *Cell) cellDoc {
	doc := cellDoc{Name: c.Name}
	for _, n := range c.nets {
		doc.Nets = append(doc.Nets, netDoc{ID: n.ID, Name: n.Name})
	}
	for _, p := range c.prims {
		pd := primDoc{ID: p.ID, Net: p.NetName, Layer: p.Layer, Outline: encodePoly(p.Outline)}
		for _, v := range p.Voids {
			pd.Voids = append(pd.Voids, encodePoly(v))
		}
		doc.Primitives = append(doc.Primitives, pd)
	}
	for _, p := range c.pinsts {
		doc.Padstacks = append(doc.Padstacks, pinstDoc{
			ID: p.ID, Name: p.Name, Net: p.NetName,
			Position:  pointDoc{p.Position.X, p.Position.Y},
			FromLayer: p.FromLayer, ToLayer: p.ToLayer, Component: p.Component,
		})
	}
	for _, comp := range c.comps {
		doc.Components = append(doc.Components, componentDoc{
			Name:           comp.Name,
			Type:           comp.Type.String(),
			PlacementLayer: comp.PlacementLayer,
			SolderHeight:   comp.SolderBallHeight,
			SolderBelow:    comp.SolderBallPlacement == SolderBelowComponent,
			ChipDown:       comp.DieOrientation == DieChipDown,
		})
	}
	for _, inst := range c.instances {
		doc.Instances = append(doc.Instances, instanceDoc{
			ID: inst.ID, Name: inst.Name, Cell: inst.CellName,
			Location:  pointDoc{inst.Placement.Location.X, inst.Placement.Location.Y},
			Elevation: inst.Placement.Elevation,
			Rotation:  inst.Placement.Rotation,
			Flipped:   inst.Placement.Flipped,
		})
	}
	return doc
}

func decodeCell(doc cellDoc) (*Cell, error) {
	c := NewCell(doc.Name)
	for _, n := range doc.Nets {
		net := &Net{ID: n.ID, Name: n.Name}
		if _, ok := c.netIndex[n.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNet, n.Name)
		}
		c.nets = append(c.nets, net)
		c.netIndex[n.Name] = net
	}
	for _, cd := range doc.Components {
		comp := &Component{
			Name:             cd.Name,
			Type:             componentTypeFromString(cd.Type),
			PlacementLayer:   cd.PlacementLayer,
			SolderBallHeight: cd.SolderHeight,
		}
		if cd.SolderBelow {
			comp.SolderBallPlacement = SolderBelowComponent
		}
		if cd.ChipDown {
			comp.DieOrientation = DieChipDown
		}
		if err := c.AddComponent(comp); err != nil {
			return nil, err
		}
	}
	for _, pd := range doc.Primitives {
		p := &Primitive{ID: pd.ID, NetName: pd.Net, Layer: pd.Layer, Outline: decodePoly(pd.Outline)}
		for _, v := range pd.Voids {
			p.Voids = append(p.Voids, decodePoly(v))
		}
		if _, ok := c.netIndex[pd.Net]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNet, pd.Net)
		}
		c.prims = append(c.prims, p)
		c.primIndex[p.ID] = p
	}
	for _, pd := range doc.Padstacks {
		p := &PadstackInstance{
			ID: pd.ID, Name: pd.Name, NetName: pd.Net,
			Position:  geometry.Pt(pd.Position.X, pd.Position.Y),
			FromLayer: pd.FromLayer, ToLayer: pd.ToLayer, Component: pd.Component,
		}
		if _, ok := c.netIndex[pd.Net]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNet, pd.Net)
		}
		if p.Component != "" {
			comp, ok := c.compIndex[p.Component]
			if !ok {
				return nil, fmt.Errorf("padstack %s references unknown component %q", p.ID, p.Component)
			}
			comp.pins = append(comp.pins, p.ID)
		}
		c.pinsts = append(c.pinsts, p)
		c.pinstIdx[p.ID] = p
	}
	for _, id := range doc.Instances {
		c.instances = append(c.instances, &CellInstance{
			ID: id.ID, Name: id.Name, CellName: id.Cell,
			Placement: Placement{
				Location:  geometry.Pt(id.Location.X, id.Location.Y),
				Elevation: id.Elevation,
				Rotation:  id.Rotation,
				Flipped:   id.Flipped,
			},
		})
	}
	return c, nil
}

func componentTypeFromString(s string) ComponentType {
	switch strings.ToLower(s) {
	case "ic":
		return ComponentIC
	case "io":
		return ComponentIO
	case "resistor":
		return ComponentResistor
	case "inductor":
		return ComponentInductor
	case "capacitor":
		return ComponentCapacitor
	default:
		return ComponentOther
	}
}

func encodePoly(p geometry.Polygon) []pointDoc {
	out := make([]pointDoc, len(p))
	for i, pt := range p {
		out[i] = pointDoc{pt.X, pt.Y}
	}
	return out
}

func decodePoly(pts []pointDoc) geometry.Polygon {
	out := make(geometry.Polygon, len(pts))
	for i, pt := range pts {
		out[i] = geometry.Pt(pt.X, pt.Y)
	}
	return out
}

// FileStore keeps each cell as a JSON file in a directory. Saves go through
// a temp file and rename so a crash never leaves a half-written cell.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based store in the given directory.
// The directory will be created if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "create store directory")
	}
	return &FileStore{dir: dir}, nil
}

// Load retrieves the cell with the given name.
func (s *FileStore) Load(ctx context.Context, name string) (*Cell, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrCodeCellNotFound, "cell %q not found", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "read cell file")
	}
	var doc cellDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "decode cell file")
	}
	cell, err := decodeCell(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "rebuild cell")
	}
	return cell, nil
}

// Save persists the cell, replacing any stored version of the same name.
func (s *FileStore) Save(ctx context.Context, cell *Cell) error {
	data, err := json.MarshalIndent(encodeCell(cell), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "encode cell")
	}
	path := s.path(cell.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "write cell file")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrCodeStore, "commit cell file")
	}
	return nil
}

// List returns the names of all stored cells.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "read store directory")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return names, nil
}

// Delete removes the stored cell, ignoring absent names.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "delete cell file")
	}
	return nil
}

// Close does nothing for a file store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

// WriteCellFile writes a single cell to a standalone JSON file, using the
// same document format as the file store.
func WriteCellFile(cell *Cell, path string) error {
	data, err := json.MarshalIndent(encodeCell(cell), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "encode cell")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "write cell file")
	}
	return nil
}

// ReadCellFile reads a cell from a standalone JSON file.
func ReadCellFile(path string) (*Cell, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrCodeFileNotFound, "cell file %q not found", path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "read cell file")
	}
	var doc cellDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "decode cell file")
	}
	cell, err := decodeCell(doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "rebuild cell")
	}
	return cell, nil
}
