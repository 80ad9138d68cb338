package stackio

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/materials"
	"github.com/edalab/lamina/pkg/stackup"
)

// Control-file document structure. Only the Stackup branch is modeled; other
// branches of the schema are ignored on import.
type xmlControl struct {
	XMLName xml.Name   `xml:"Control"`
	Stackup xmlStackup `xml:"Stackup"`
}

type xmlStackup struct {
	SchemaVersion string        `xml:"schemaVersion,attr"`
	Materials     []xmlMaterial `xml:"Materials>Material"`
	Layers        xmlLayers     `xml:"Layers"`
}

type xmlMaterial struct {
	Name         string     `xml:"Name,attr"`
	Permittivity *xmlDouble `xml:"Permittivity,omitempty"`
	Conductivity *xmlDouble `xml:"Conductivity,omitempty"`
	LossTangent  *xmlDouble `xml:"DielectricLossTangent,omitempty"`
}

type xmlDouble struct {
	Value float64 `xml:"Double"`
}

type xmlLayers struct {
	LengthUnit string     `xml:"LengthUnit,attr"`
	Layers     []xmlLayer `xml:"Layer"`
}

type xmlLayer struct {
	Name         string  `xml:"Name,attr"`
	Type         string  `xml:"Type,attr"`
	Material     string  `xml:"Material,attr,omitempty"`
	FillMaterial string  `xml:"FillMaterial,attr,omitempty"`
	Thickness    float64 `xml:"Thickness,attr"`

	HurayTop      *xmlHuray   `xml:"HuraySurfaceRoughness,omitempty"`
	HurayBottom   *xmlHuray   `xml:"HuraySurfaceRoughnessBottom,omitempty"`
	HuraySide     *xmlHuray   `xml:"HuraySurfaceRoughnessSide,omitempty"`
	GroissTop     *xmlGroisse `xml:"GroissSurfaceRoughness,omitempty"`
	GroissBottom  *xmlGroisse `xml:"GroissSurfaceRoughnessBottom,omitempty"`
	GroissSide    *xmlGroisse `xml:"GroissSurfaceRoughnessSide,omitempty"`
}

type xmlHuray struct {
	NoduleRadius string `xml:"NoduleRadius,attr"`
	SurfaceRatio string `xml:"HallHuraySurfaceRatio,attr"`
}

type xmlGroisse struct {
	Roughness string `xml:"Roughness,attr"`
}

// WriteControlFile writes the stackup in the Ansys control-file XML schema.
// Signal layers are written with Type="conductor".
func WriteControlFile(s *stackup.Stackup, w io.Writer) error {
	doc := xmlControl{
		Stackup: xmlStackup{
			SchemaVersion: "1.0",
			Layers:        xmlLayers{LengthUnit: "meter"},
		},
	}

	seen := map[string]bool{}
	addMaterial := func(name string) {
		if name == "" || seen[name] {
			return
		}
		m, ok := s.Materials().Get(name)
		if !ok {
			return
		}
		seen[name] = true
		xm := xmlMaterial{Name: m.Name}
		if m.Kind == materials.Conductor {
			xm.Conductivity = &xmlDouble{Value: m.Conductivity}
		} else {
			xm.Permittivity = &xmlDouble{Value: m.Permittivity}
			if m.LossTangent != 0 {
				xm.LossTangent = &xmlDouble{Value: m.LossTangent}
			}
		}
		doc.Stackup.Materials = append(doc.Stackup.Materials, xm)
	}

	for _, l := range s.StackupLayers() {
		addMaterial(l.Material)
		addMaterial(l.FillMaterial)

		typ := l.Type.String()
		if l.Type == stackup.LayerSignal {
			typ = "conductor"
		}
		xl := xmlLayer{
			Name:         l.Name,
			Type:         typ,
			Material:     l.Material,
			FillMaterial: l.FillMaterial,
			Thickness:    l.Thickness,
		}
		if l.Roughness.Enabled {
			xl.HurayTop, xl.GroissTop = encodeSurface(l.Roughness.Top)
			xl.HurayBottom, xl.GroissBottom = encodeSurface(l.Roughness.Bottom)
			xl.HuraySide, xl.GroissSide = encodeSurface(l.Roughness.Side)
		}
		doc.Stackup.Layers.Layers = append(doc.Stackup.Layers.Layers, xl)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Flush()
}

func encodeSurface(sr stackup.SurfaceRoughness) (*xmlHuray, *xmlGroisse) {
	if sr.Huray != nil {
		return &xmlHuray{
			NoduleRadius: fmt.Sprintf("%g", sr.Huray.NoduleRadius),
			SurfaceRatio: fmt.Sprintf("%g", sr.Huray.SurfaceRatio),
		}, nil
	}
	if sr.Groisse != nil {
		return nil, &xmlGroisse{Roughness: fmt.Sprintf("%g", sr.Groisse.Roughness)}
	}
	return nil, nil
}

// ExportControlFile writes the stackup to an XML control file at path.
func ExportControlFile(s *stackup.Stackup, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "create xml file")
	}
	defer f.Close()
	return WriteControlFile(s, f)
}

// ReadControlFile appends the layers described by r to s. Material records
// are registered into the stackup's library; Type="conductor" maps back to
// signal.
func ReadControlFile(s *stackup.Stackup, r io.Reader) error {
	var doc xmlControl
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidFormat, "decode control file")
	}

	for _, xm := range doc.Stackup.Materials {
		m := materials.Material{Name: xm.Name}
		if xm.Conductivity != nil {
			m.Kind = materials.Conductor
			m.Conductivity = xm.Conductivity.Value
		} else {
			m.Kind = materials.Dielectric
			if xm.Permittivity != nil {
				m.Permittivity = xm.Permittivity.Value
			}
			if xm.LossTangent != nil {
				m.LossTangent = xm.LossTangent.Value
			}
		}
		if err := s.Materials().Update(m); err != nil {
			return err
		}
	}

	for _, xl := range doc.Stackup.Layers.Layers {
		typ := stackup.ParseLayerType(xl.Type)
		if xl.Type == "conductor" {
			typ = stackup.LayerSignal
		}
		layer, err := s.AddLayer(stackup.AddLayerOptions{
			Name:         xl.Name,
			Method:       stackup.InsertBottom(),
			Type:         typ,
			Material:     xl.Material,
			FillMaterial: xl.FillMaterial,
			Thickness:    xl.Thickness,
		})
		if err != nil {
			return err
		}
		if rough, ok := decodeRoughness(xl); ok {
			updated := layer.Clone()
			updated.Roughness = rough
			if err := s.UpdateLayer(updated); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeRoughness(xl xmlLayer) (stackup.Roughness, bool) {
	out := stackup.Roughness{}
	decode := func(h *xmlHuray, g *xmlGroisse) stackup.SurfaceRoughness {
		var sr stackup.SurfaceRoughness
		if h != nil {
			sr.Huray = &stackup.HurayRoughness{
				NoduleRadius: parseFloat(h.NoduleRadius),
				SurfaceRatio: parseFloat(h.SurfaceRatio),
			}
		} else if g != nil {
			sr.Groisse = &stackup.GroisseRoughness{Roughness: parseFloat(g.Roughness)}
		}
		return sr
	}
	out.Top = decode(xl.HurayTop, xl.GroissTop)
	out.Bottom = decode(xl.HurayBottom, xl.GroissBottom)
	out.Side = decode(xl.HuraySide, xl.GroissSide)
	out.Enabled = !out.Top.IsZero() || !out.Bottom.IsZero() || !out.Side.IsZero()
	return out, out.Enabled
}

func parseFloat(s string) float64 {
	var v float64
	_, _ = fmt.Sscanf(s, "%g", &v)
	return v
}

// ImportControlFile reads an XML control file at path into s.
func ImportControlFile(s *stackup.Stackup, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileNotFound, "open xml file")
	}
	defer f.Close()
	return ReadControlFile(s, f)
}
