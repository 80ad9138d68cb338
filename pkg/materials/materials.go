// Package materials provides a material property library keyed by name.
//
// Lookups are case-insensitive because imported stackup files frequently
// disagree on casing ("Copper" vs "copper"). Registration keeps the caller's
// canonical spelling for display and export.
package materials

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/edalab/lamina/pkg/errors"
)

// Kind distinguishes conductor and dielectric materials.
type Kind int

const (
	// Conductor materials carry conductivity and are used on signal layers.
	Conductor Kind = iota
	// Dielectric materials carry permittivity and loss tangent.
	Dielectric
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Conductor:
		return "conductor"
	case Dielectric:
		return "dielectric"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalJSON encodes the kind as its string name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its string name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "conductor":
		*k = Conductor
	case "dielectric":
		*k = Dielectric
	default:
		return errors.Newf(errors.ErrCodeInvalidFormat, "unknown material kind %q", s)
	}
	return nil
}

// Material holds the electrical properties of a single library entry.
type Material struct {
	Name         string  `json:"name"`
	Kind         Kind    `json:"kind"`
	Conductivity float64 `json:"conductivity,omitempty"` // S/m, conductors only
	Permittivity float64 `json:"permittivity,omitempty"` // relative
	LossTangent  float64 `json:"loss_tangent,omitempty"`
}

// IsConductor reports whether the material is a conductor.
func (m Material) IsConductor() bool { return m.Kind == Conductor }

// Library is a thread-safe registry of materials.
type Library struct {
	mu     sync.RWMutex
	byName map[string]Material // key is the lower-cased name
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{byName: make(map[string]Material)}
}

// DefaultLibrary returns a library pre-populated with the materials the
// stackup builders reference by default.
func DefaultLibrary() *Library {
	lib := NewLibrary()
	for _, m := range []Material{
		{Name: "copper", Kind: Conductor, Conductivity: 5.8e7},
		{Name: "gold", Kind: Conductor, Conductivity: 4.1e7},
		{Name: "pec", Kind: Conductor, Conductivity: 1e30},
		{Name: "fr4_epoxy", Kind: Dielectric, Permittivity: 4.4, LossTangent: 0.02},
		{Name: "air", Kind: Dielectric, Permittivity: 1.0006},
		{Name: "solder_mask", Kind: Dielectric, Permittivity: 3.1, LossTangent: 0.035},
		{Name: "solder", Kind: Conductor, Conductivity: 7e6},
		{Name: "polyimide", Kind: Dielectric, Permittivity: 3.5, LossTangent: 0.008},
	} {
		_ = lib.Register(m)
	}
	return lib
}

// Register adds a material to the library. It fails when a material with the
// same name (ignoring case) is already registered.
func (l *Library) Register(m Material) error {
	if m.Name == "" {
		return errors.New(errors.ErrCodeInvalidFormat, "material name must not be empty")
	}
	key := strings.ToLower(m.Name)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byName[key]; ok {
		return errors.Newf(errors.ErrCodeDuplicateName, "material %q already registered", m.Name)
	}
	l.byName[key] = m
	return nil
}

// Update replaces an existing material, registering it when absent.
func (l *Library) Update(m Material) error {
	if m.Name == "" {
		return errors.New(errors.ErrCodeInvalidFormat, "material name must not be empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byName[strings.ToLower(m.Name)] = m
	return nil
}

// Get returns the material registered under name, matched case-insensitively.
func (l *Library) Get(name string) (Material, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.byName[strings.ToLower(name)]
	return m, ok
}

// Exists reports whether name is registered, ignoring case.
func (l *Library) Exists(name string) bool {
	_, ok := l.Get(name)
	return ok
}

// Resolve maps an arbitrary material reference onto a registered material.
// An exact (case-insensitive) match wins; otherwise the registered name with
// the longest shared prefix is chosen so "FR4" resolves to "fr4_epoxy".
// A name sharing no prefix with any entry resolves to the zero Material so
// the caller can leave the reference as-is. The boolean reports whether the
// match was exact.
func (l *Library) Resolve(name string) (Material, bool) {
	if m, ok := l.Get(name); ok {
		return m, true
	}
	lower := strings.ToLower(name)
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.byName))
	for key := range l.byName {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var (
		best    Material
		bestLen int
	)
	for _, key := range keys {
		if n := sharedPrefix(lower, key); n > bestLen {
			best, bestLen = l.byName[key], n
		}
	}
	return best, false
}

func sharedPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Names returns the registered material names sorted alphabetically.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.byName))
	for _, m := range l.byName {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered materials.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byName)
}

// All returns every registered material sorted by name.
func (l *Library) All() []Material {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Material, 0, len(l.byName))
	for _, m := range l.byName {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
