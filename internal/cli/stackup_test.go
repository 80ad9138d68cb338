package cli

import (
	"path/filepath"
	"testing"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/stackup"
)

func TestStackupFormatDispatch(t *testing.T) {
	c := newTestCLI()
	dir := t.TempDir()

	s := c.newStackup(stackup.Laminate)
	if err := s.CreateSymmetricStackup(stackup.SymmetricOptions{LayerCount: 2}); err != nil {
		t.Fatalf("CreateSymmetricStackup: %v", err)
	}
	want := len(s.StackupLayers())

	for _, ext := range []string{".csv", ".json", ".xml"} {
		path := filepath.Join(dir, "stack"+ext)
		if err := c.exportStackup(s, path); err != nil {
			t.Fatalf("export %s: %v", ext, err)
		}
		got, err := c.importStackup(path)
		if err != nil {
			t.Fatalf("import %s: %v", ext, err)
		}
		if len(got.StackupLayers()) != want {
			t.Errorf("%s round trip: %d layers, want %d", ext, len(got.StackupLayers()), want)
		}
	}
}

func TestDefaultMaterialFromConfig(t *testing.T) {
	c := newTestCLI()
	c.Config.DefaultConductor = "gold"
	c.Config.DefaultDielectric = "polyimide"

	if got := c.defaultMaterial(stackup.LayerSignal); got != "gold" {
		t.Errorf("signal default = %q, want gold", got)
	}
	if got := c.defaultMaterial(stackup.LayerDielectric); got != "polyimide" {
		t.Errorf("dielectric default = %q, want polyimide", got)
	}
}

func TestStackupUnknownFormat(t *testing.T) {
	c := newTestCLI()
	_, err := c.importStackup("stack.xlsx")
	if errors.GetCode(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("import error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
	if err := c.exportStackup(c.newStackup(stackup.Laminate), "stack.xlsx"); errors.GetCode(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("export error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
}
