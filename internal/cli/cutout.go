package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/edalab/lamina/pkg/cutout"
	"github.com/edalab/lamina/pkg/layout"
)

// rounding is the duration precision of timing output.
const rounding = time.Millisecond

// cutoutCommand creates the cutout command.
func (c *CLI) cutoutCommand() *cobra.Command {
	var (
		signalNets    string
		referenceNets string
		extentType    string
		expansion     float64
		roundCorners  bool
		defeature     float64
		output        string
		workers       int
		keepVoids     bool
		partial       bool
		cleanupRLC    bool
		noCache       bool
		interactive   bool
	)

	cmd := &cobra.Command{
		Use:   "cutout [cell]",
		Short: "Cut a reduced simulation region out of a stored layout",
		Long: `Cut a reduced simulation region out of a stored layout.

The cutout keeps the named signal nets whole, clips the reference nets at
the derived region boundary, and deletes everything else. With --output the
source cell is left untouched and the result is stored under the new name.

Expansion and defeature sizes are given in millimeters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.newStore(cmd)
			if err != nil {
				return fmt.Errorf("open cell store: %w", err)
			}
			defer store.Close()

			cell, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			signals := splitNets(signalNets)
			if interactive {
				signals, err = pickNets(cell, signals)
				if err != nil {
					return err
				}
				if len(signals) == 0 {
					printInfo("No nets selected")
					return nil
				}
			}

			et, err := cutout.ParseExtentType(extentType)
			if err != nil {
				return err
			}
			if workers == 0 {
				workers = c.Config.Workers
			}

			expansionM := expansion * 1e-3
			opts := cutout.Options{
				SignalNets:         signals,
				ReferenceNets:      splitNets(referenceNets),
				ExtentType:         et,
				ExpansionSize:      &expansionM,
				RoundCorners:       roundCorners,
				DefeatureSize:      defeature * 1e-3,
				OutputCell:         output,
				Workers:            workers,
				KeepVoids:          &keepVoids,
				IncludePartial:     partial,
				RemoveSinglePinRLC: cleanupRLC,
			}

			return c.runCutout(cmd.Context(), store, cell, opts, noCache)
		},
	}

	cmd.Flags().StringVarP(&signalNets, "signals", "s", "", "comma-separated signal nets")
	cmd.Flags().StringVarP(&referenceNets, "references", "r", "GND", "comma-separated reference nets")
	cmd.Flags().StringVarP(&extentType, "extent", "e", "Conforming", "extent type: Conforming, ConvexHull, BoundingBox")
	cmd.Flags().Float64Var(&expansion, "expansion", cutout.DefaultExpansion*1e3, "extent expansion in mm")
	cmd.Flags().BoolVar(&roundCorners, "round-corners", false, "round expanded corners")
	cmd.Flags().Float64Var(&defeature, "defeature", 0, "drop conforming extent slivers below this size in mm")
	cmd.Flags().StringVarP(&output, "output", "o", "", "store result under this cell name (default: in place)")
	cmd.Flags().IntVar(&workers, "workers", 0, "classification worker count")
	cmd.Flags().BoolVar(&keepVoids, "keep-voids", true, "keep plane voids that survive clipping")
	cmd.Flags().BoolVar(&partial, "include-partial", false, "keep padstacks inside the region bounding box")
	cmd.Flags().BoolVar(&cleanupRLC, "remove-single-pin-rlc", false, "delete RLC components left with one pin")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable extent caching")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick signal nets interactively")

	return cmd
}

// runCutout executes the engine and reports the result.
func (c *CLI) runCutout(ctx context.Context, store layout.Store, cell *layout.Cell, opts cutout.Options, noCache bool) error {
	engine, ch := c.newEngine(store, noCache)
	defer ch.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Cutting out %d signal nets...", len(opts.SignalNets)))
	spinner.Start()

	res, err := engine.Run(ctx, cell, opts)
	if err != nil {
		spinner.StopWithError("Cutout failed")
		return err
	}
	spinner.Stop()
	prog.done("cutout finished")

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// In-place cutouts still need to be written back.
	if opts.OutputCell == "" {
		if err := store.Save(ctx, res.Cell); err != nil {
			return fmt.Errorf("save cell %s: %w", res.Cell.Name, err)
		}
	}

	printSuccess("Cutout complete")
	printDetail("cell:       %s", res.Cell.Name)
	printDetail("nets:       %s", strings.Join(res.Cell.NetNames(), ", "))
	printDetail("deleted:    %d nets, %d primitives, %d padstacks, %d components",
		res.Stats.NetsDeleted, res.Stats.PrimitivesDeleted,
		res.Stats.PadstacksDeleted, res.Stats.ComponentsDeleted)
	printDetail("clipped:    %d primitives into %d",
		res.Stats.PrimitivesClipped, res.Stats.PrimitivesCreated)
	cacheNote := "computed"
	if res.Stats.ExtentCacheHit {
		cacheNote = "cached"
	}
	printDetail("extent:     %d members (%s)", len(res.Extent), cacheNote)
	printDetail("timing:     prune %s, extent %s, classify %s, apply %s",
		res.Stats.PruneTime.Round(rounding), res.Stats.ExtentTime.Round(rounding),
		res.Stats.ClassifyTime.Round(rounding), res.Stats.ApplyTime.Round(rounding))
	return nil
}

// splitNets parses a comma-separated net list, dropping empty entries.
func splitNets(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
