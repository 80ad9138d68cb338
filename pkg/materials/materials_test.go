package materials

import (
	"encoding/json"
	"testing"

	"github.com/edalab/lamina/pkg/errors"
)

func TestRegisterAndGet(t *testing.T) {
	lib := NewLibrary()
	if err := lib.Register(Material{Name: "Copper", Kind: Conductor, Conductivity: 5.8e7}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	m, ok := lib.Get("copper")
	if !ok {
		t.Fatal("case-insensitive Get should find Copper")
	}
	if m.Name != "Copper" {
		t.Errorf("canonical name = %q, want Copper", m.Name)
	}
	if !m.IsConductor() {
		t.Error("copper should be a conductor")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	lib := NewLibrary()
	if err := lib.Register(Material{Name: "fr4", Kind: Dielectric}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := lib.Register(Material{Name: "FR4", Kind: Dielectric})
	if err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if errors.GetCode(err) != errors.ErrCodeDuplicateName {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeDuplicateName)
	}
}

func TestResolve(t *testing.T) {
	lib := DefaultLibrary()

	tests := []struct {
		name      string
		wantName  string
		wantExact bool
	}{
		{"copper", "copper", true},
		{"COPPER", "copper", true},
		{"FR4", "fr4_epoxy", false},
		{"solder_m", "solder_mask", false},
		// No shared prefix with any entry: must stay unresolved rather
		// than pick an arbitrary substitute.
		{"zzz_unobtanium", "", false},
	}

	for _, tt := range tests {
		m, exact := lib.Resolve(tt.name)
		if m.Name != tt.wantName || exact != tt.wantExact {
			t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)",
				tt.name, m.Name, exact, tt.wantName, tt.wantExact)
		}
	}
}

func TestUpdate(t *testing.T) {
	lib := NewLibrary()
	if err := lib.Update(Material{Name: "air", Kind: Dielectric, Permittivity: 1}); err != nil {
		t.Fatalf("Update insert failed: %v", err)
	}
	if err := lib.Update(Material{Name: "Air", Kind: Dielectric, Permittivity: 1.0006}); err != nil {
		t.Fatalf("Update replace failed: %v", err)
	}
	if lib.Len() != 1 {
		t.Errorf("Len = %d, want 1", lib.Len())
	}
	m, _ := lib.Get("air")
	if m.Permittivity != 1.0006 {
		t.Errorf("Permittivity = %v after update", m.Permittivity)
	}
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(Material{Name: "copper", Kind: Conductor})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var m Material
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if m.Kind != Conductor {
		t.Errorf("round-tripped kind = %v", m.Kind)
	}

	if err := json.Unmarshal([]byte(`{"name":"x","kind":"metal"}`), &m); err == nil {
		t.Error("unknown kind string should fail to decode")
	}
}

func TestNamesSorted(t *testing.T) {
	lib := NewLibrary()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		if err := lib.Register(Material{Name: n, Kind: Dielectric}); err != nil {
			t.Fatal(err)
		}
	}
	names := lib.Names()
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}
