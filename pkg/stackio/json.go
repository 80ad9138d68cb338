package stackio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/materials"
	"github.com/edalab/lamina/pkg/stackup"
)

// JSONOptions configures JSON export.
type JSONOptions struct {
	// InlineMaterials embeds full material records into each layer instead
	// of writing a shared materials map with name references.
	InlineMaterials bool
}

type jsonLayer struct {
	Type           string   `json:"type"`
	Material       string   `json:"material,omitempty"`
	FillMaterial   string   `json:"fill_material,omitempty"`
	Thickness      float64  `json:"thickness"`
	LowerElevation float64  `json:"lower_elevation"`
	IsNegative     bool     `json:"is_negative,omitempty"`
	EtchFactor     *float64 `json:"etch_factor,omitempty"`

	// Inlined material records, present only with InlineMaterials.
	MaterialRecord *materials.Material `json:"material_record,omitempty"`
	FillRecord     *materials.Material `json:"fill_record,omitempty"`
}

type namedLayer struct {
	name  string
	layer jsonLayer
}

// orderedLayers marshals as a JSON object whose key order is the slice
// order, so the document records stacking order top-to-bottom.
type orderedLayers []namedLayer

func (o orderedLayers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nl := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(nl.name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(nl.layer)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedLayers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("layers: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("layers: non-string key %v", keyTok)
		}
		var l jsonLayer
		if err := dec.Decode(&l); err != nil {
			return fmt.Errorf("layer %q: %w", name, err)
		}
		*o = append(*o, namedLayer{name: name, layer: l})
	}
	_, err = dec.Token() // closing brace
	return err
}

type jsonStackup struct {
	Materials map[string]materials.Material `json:"materials,omitempty"`
	Layers    orderedLayers                 `json:"layers"`
}

// WriteJSON writes the stackup as a nested JSON document: a materials map
// plus a layers map ordered top-to-bottom.
func WriteJSON(s *stackup.Stackup, w io.Writer, opts JSONOptions) error {
	doc := jsonStackup{}
	if !opts.InlineMaterials {
		doc.Materials = map[string]materials.Material{}
	}

	record := func(name string) *materials.Material {
		if name == "" {
			return nil
		}
		m, ok := s.Materials().Get(name)
		if !ok {
			return nil
		}
		return &m
	}

	for _, l := range s.StackupLayers() {
		jl := jsonLayer{
			Type:           l.Type.String(),
			Material:       l.Material,
			FillMaterial:   l.FillMaterial,
			Thickness:      l.Thickness,
			LowerElevation: l.LowerElevation,
			IsNegative:     l.IsNegative,
			EtchFactor:     l.EtchFactor,
		}
		if opts.InlineMaterials {
			jl.MaterialRecord = record(l.Material)
			jl.FillRecord = record(l.FillMaterial)
		} else {
			for _, name := range []string{l.Material, l.FillMaterial} {
				if m := record(name); m != nil {
					doc.Materials[m.Name] = *m
				}
			}
		}
		doc.Layers = append(doc.Layers, namedLayer{name: l.Name, layer: jl})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportJSON writes the stackup to a JSON file at path.
func ExportJSON(s *stackup.Stackup, path string, opts JSONOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "create json file")
	}
	defer f.Close()
	return WriteJSON(s, f, opts)
}

// ReadJSON appends the layers described by r to s, registering any material
// records into the stackup's library first so layer references resolve.
func ReadJSON(s *stackup.Stackup, r io.Reader) error {
	var doc jsonStackup
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidFormat, "decode json stackup")
	}

	for _, m := range doc.Materials {
		if err := s.Materials().Update(m); err != nil {
			return err
		}
	}
	for _, nl := range doc.Layers {
		for _, m := range []*materials.Material{nl.layer.MaterialRecord, nl.layer.FillRecord} {
			if m != nil {
				if err := s.Materials().Update(*m); err != nil {
					return err
				}
			}
		}
	}

	for _, nl := range doc.Layers {
		if _, err := s.AddLayer(stackup.AddLayerOptions{
			Name:         nl.name,
			Method:       stackup.InsertBottom(),
			Type:         stackup.ParseLayerType(nl.layer.Type),
			Material:     nl.layer.Material,
			FillMaterial: nl.layer.FillMaterial,
			Thickness:    nl.layer.Thickness,
			EtchFactor:   nl.layer.EtchFactor,
			IsNegative:   nl.layer.IsNegative,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ImportJSON reads a JSON file at path into s.
func ImportJSON(s *stackup.Stackup, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileNotFound, "open json file")
	}
	defer f.Close()
	return ReadJSON(s, f)
}
