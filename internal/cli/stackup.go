package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/stackio"
	"github.com/edalab/lamina/pkg/stackup"
)

// stackupCommand creates the stackup command group.
func (c *CLI) stackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackup",
		Short: "Inspect and transform layer stackups",
	}

	cmd.AddCommand(c.stackupShowCommand())
	cmd.AddCommand(c.stackupConvertCommand())
	cmd.AddCommand(c.stackupSymmetricCommand())
	cmd.AddCommand(c.stackupFlipCommand())
	cmd.AddCommand(c.stackupAddLayerCommand())
	cmd.AddCommand(c.stackupRemoveLayerCommand())

	return cmd
}

// stackupShowCommand creates the "stackup show" subcommand.
func (c *CLI) stackupShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [stackup file]",
		Short: "Print the layer table of a stackup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.importStackup(args[0])
			if err != nil {
				return err
			}

			fmt.Println(renderLayerTable(s.StackupLayers()))

			if limits, ok := s.StackupLimits(false); ok {
				printDetail("top:       %s at %s", limits.TopLayer, um(limits.TopElevation))
				printDetail("bottom:    %s at %s", limits.BottomLayer, um(limits.BottomElevation))
				printDetail("thickness: %s", um(s.LayoutThickness()))
			}
			return nil
		},
	}
}

// stackupConvertCommand creates the "stackup convert" subcommand.
func (c *CLI) stackupConvertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Convert a stackup between CSV, JSON, and control-file XML",
		Long: `Convert a stackup between file formats.

The format is chosen by file extension: .csv, .json, or .xml (Ansys control
file). Materials referenced by the input are carried into formats that store
them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.importStackup(args[0])
			if err != nil {
				return err
			}
			if err := c.exportStackup(s, args[1]); err != nil {
				return err
			}
			printSuccess("Converted %d layers", len(s.StackupLayers()))
			printFile(args[1])
			return nil
		},
	}
}

// stackupSymmetricCommand creates the "stackup symmetric" subcommand.
func (c *CLI) stackupSymmetricCommand() *cobra.Command {
	var (
		layers     int
		inner      float64
		outer      float64
		dielectric float64
		soldermask bool
	)

	cmd := &cobra.Command{
		Use:   "symmetric [output]",
		Short: "Generate a symmetric stackup and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.newStackup(stackup.Laminate)
			err := s.CreateSymmetricStackup(stackup.SymmetricOptions{
				LayerCount:          layers,
				InnerThickness:      inner * 1e-6,
				OuterThickness:      outer * 1e-6,
				DielectricThickness: dielectric * 1e-6,
				Soldermask:          soldermask,
				ConductorMaterial:   c.Config.DefaultConductor,
				DielectricMaterial:  c.Config.DefaultDielectric,
			})
			if err != nil {
				return err
			}
			if err := c.exportStackup(s, args[0]); err != nil {
				return err
			}
			printSuccess("Created %d-signal-layer stackup", layers)
			printFile(args[0])
			printNewline()
			printNextStep("Inspect", "lamina stackup show "+args[0])
			return nil
		},
	}

	cmd.Flags().IntVarP(&layers, "layers", "n", 4, "signal layer count (even, >= 2)")
	cmd.Flags().Float64Var(&inner, "inner", 17, "inner signal thickness in um")
	cmd.Flags().Float64Var(&outer, "outer", 50, "outer signal thickness in um")
	cmd.Flags().Float64Var(&dielectric, "dielectric", 100, "dielectric thickness in um")
	cmd.Flags().BoolVar(&soldermask, "soldermask", false, "add soldermask layers")

	return cmd
}

// stackupFlipCommand creates the "stackup flip" subcommand.
func (c *CLI) stackupFlipCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "flip [stackup file]",
		Short: "Flip a stackup upside down",
		Long: `Flip a stackup upside down.

The layer order reverses, elevations are recomputed so the former top layer
sits at the bottom, via spans and surface roughness sides are swapped. The
result overwrites the input unless --output is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.importStackup(args[0])
			if err != nil {
				return err
			}
			if err := s.FlipDesign(nil); err != nil {
				return err
			}

			out := output
			if out == "" {
				out = args[0]
			}
			if err := c.exportStackup(s, out); err != nil {
				return err
			}
			printSuccess("Flipped %d layers", len(s.StackupLayers()))
			printFile(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: overwrite input)")
	return cmd
}

// stackupAddLayerCommand creates the "stackup add-layer" subcommand.
func (c *CLI) stackupAddLayerCommand() *cobra.Command {
	var (
		layerType string
		material  string
		thickness float64
		above     string
		below     string
	)

	cmd := &cobra.Command{
		Use:   "add-layer [stackup file] [name]",
		Short: "Add a layer to a stackup file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.importStackup(args[0])
			if err != nil {
				return err
			}

			method := stackup.InsertTop()
			switch {
			case above != "":
				method = stackup.InsertAbove(above)
			case below != "":
				method = stackup.InsertBelow(below)
			}

			lt := stackup.ParseLayerType(layerType)
			if material == "" {
				material = c.defaultMaterial(lt)
			}
			_, err = s.AddLayer(stackup.AddLayerOptions{
				Name:      args[1],
				Type:      lt,
				Material:  material,
				Thickness: thickness * 1e-6,
				Method:    method,
			})
			if err != nil {
				return err
			}
			if err := c.exportStackup(s, args[0]); err != nil {
				return err
			}
			printSuccess("Added layer %s", args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&layerType, "type", "t", "signal", "layer type: signal, dielectric")
	cmd.Flags().StringVarP(&material, "material", "m", "", "material name (default by type)")
	cmd.Flags().Float64Var(&thickness, "thickness", 35, "thickness in um")
	cmd.Flags().StringVar(&above, "above", "", "insert above this layer")
	cmd.Flags().StringVar(&below, "below", "", "insert below this layer")
	return cmd
}

// stackupRemoveLayerCommand creates the "stackup remove-layer" subcommand.
func (c *CLI) stackupRemoveLayerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-layer [stackup file] [name]",
		Short: "Remove a layer from a stackup file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.importStackup(args[0])
			if err != nil {
				return err
			}
			if !s.RemoveLayer(args[1]) {
				return errors.Newf(errors.ErrCodeLayerNotFound, "layer %q not found", args[1])
			}
			if err := c.exportStackup(s, args[0]); err != nil {
				return err
			}
			printSuccess("Removed layer %s", args[1])
			return nil
		},
	}
}

// =============================================================================
// Format Dispatch
// =============================================================================

// importStackup reads a stackup file, dispatching on the extension.
func (c *CLI) importStackup(path string) (*stackup.Stackup, error) {
	s := c.newStackup(stackup.Laminate)
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		err = stackio.ImportCSV(s, path)
	case ".json":
		err = stackio.ImportJSON(s, path)
	case ".xml":
		err = stackio.ImportControlFile(s, path)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidFormat, "unsupported stackup format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// exportStackup writes a stackup file, dispatching on the extension.
func (c *CLI) exportStackup(s *stackup.Stackup, path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return stackio.ExportCSV(s, path)
	case ".json":
		return stackio.ExportJSON(s, path, stackio.JSONOptions{})
	case ".xml":
		return stackio.ExportControlFile(s, path)
	default:
		return errors.Newf(errors.ErrCodeInvalidFormat, "unsupported stackup format %q", ext)
	}
}
