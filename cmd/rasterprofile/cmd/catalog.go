package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rasterprofile "github.com/tingold/orb-rasterprofile"
	"github.com/tingold/orb-rasterprofile/internal/config"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.openCatalog()
			if err != nil {
				return err
			}
			defer engine.Close()

			paths, err := engine.List()
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove datasets from the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.openCatalog()
			if err != nil {
				return err
			}
			defer engine.Close()

			for _, path := range args {
				if err := engine.Remove(path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var (
		name    string
		noIndex bool
	)

	cmd := &cobra.Command{
		Use:   "index <output.fgb> [path...]",
		Short: "Write a FlatGeobuf footprint index",
		Long: `Write a FlatGeobuf file with one polygon per dataset: the footprint of
its pixel grid in world coordinates, with the dataset path, driver, data type,
size, tiling and compression as attributes. Without paths, every catalog
dataset is indexed.

Example:
  rasterprofile index footprints.fgb`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.openCatalog()
			if err != nil {
				return err
			}
			defer engine.Close()

			entries, err := engine.Entries(args[1:]...)
			if err != nil {
				return err
			}

			indexOpts := rasterprofile.DefaultIndexOptions()
			indexOpts.Name = name
			indexOpts.IncludeIndex = !noIndex
			indexOpts.CRS = rasterprofile.IndexCRS(entries)

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
			if err := rasterprofile.WriteIndex(f, entries, indexOpts); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			opts.logger.Info("index written", "path", args[0], "datasets", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "footprints", "Layer name")
	cmd.Flags().BoolVar(&noIndex, "no-spatial-index", false, "Omit the packed R-tree")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd, true)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file",
		Long: `Write a configuration file with the current settings, which are the
defaults plus any --catalog and --log-level flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ConfigExists(opts.configPath) && !force {
				return fmt.Errorf("config already exists at %s, use --force to overwrite", opts.configPath)
			}
			if err := config.SaveConfig(opts.cfg, opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", opts.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")

	configCmd.AddCommand(initCmd)
	return configCmd
}
