package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edalab/lamina/pkg/layout"
)

// cellsCommand creates the cells command group for the layout store.
func (c *CLI) cellsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cells",
		Short: "Manage stored layout cells",
	}

	cmd.AddCommand(c.cellsListCommand())
	cmd.AddCommand(c.cellsShowCommand())
	cmd.AddCommand(c.cellsDeleteCommand())
	cmd.AddCommand(c.cellsImportCommand())
	cmd.AddCommand(c.cellsExportCommand())

	return cmd
}

// cellsImportCommand creates the "cells import" subcommand.
func (c *CLI) cellsImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.json]",
		Short: "Import a cell JSON file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cell, err := layout.ReadCellFile(args[0])
			if err != nil {
				return err
			}
			store, err := c.newStore(cmd)
			if err != nil {
				return fmt.Errorf("open cell store: %w", err)
			}
			defer store.Close()

			if err := store.Save(cmd.Context(), cell); err != nil {
				return err
			}
			printSuccess("Imported %s", cell.Name)
			printDetail("%s", cell.Stats())
			return nil
		},
	}
}

// cellsExportCommand creates the "cells export" subcommand.
func (c *CLI) cellsExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [cell] [file.json]",
		Short: "Export a stored cell to a JSON file",
		Args:  cobra.ExactArgs(2),
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
			if err := layout.WriteCellFile(cell, args[1]); err != nil {
				return err
			}
			printSuccess("Exported %s", cell.Name)
			printFile(args[1])
			return nil
		},
	}
}

// cellsListCommand creates the "cells list" subcommand.
func (c *CLI) cellsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored cells",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.newStore(cmd)
			if err != nil {
				return fmt.Errorf("open cell store: %w", err)
			}
			defer store.Close()

			names, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No stored cells")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

// cellsShowCommand creates the "cells show" subcommand.
func (c *CLI) cellsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [cell]",
		Short: "Print a stored cell's contents summary",
		Args:  cobra.ExactArgs(1),
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

			fmt.Println(StyleTitle.Render(cell.Name))
			printDetail("%s", cell.Stats())
			for _, net := range cell.NetNames() {
				prims := len(cell.PrimitivesOnNets([]string{net}))
				pads := len(cell.PadstackInstancesOnNets([]string{net}))
				printDetail("net %-16s %4d primitives, %4d padstacks", net, prims, pads)
			}
			return nil
		},
	}
}

// cellsDeleteCommand creates the "cells delete" subcommand.
func (c *CLI) cellsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [cell]",
		Short: "Delete a stored cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.newStore(cmd)
			if err != nil {
				return fmt.Errorf("open cell store: %w", err)
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}
