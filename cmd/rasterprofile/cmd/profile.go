package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	rasterprofile "github.com/tingold/orb-rasterprofile"
)

func newDefaultsCmd(opts *rootOptions) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the default GeoTIFF profile",
		Long: `Print the default GeoTIFF creation profile as YAML, with optional
overrides.

Example:
  rasterprofile defaults --set count=3 --set dtype=uint16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(sets)
			if err != nil {
				return err
			}
			p, err := rasterprofile.DefaultGTiffProfile(items...)
			if err != nil {
				return err
			}
			return writeProfile(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a profile key (KEY=VALUE, repeatable)")
	return cmd
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		sets        []string
		profilePath string
		modeName    string
	)

	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create a dataset from a profile",
		Long: `Create a dataset in the catalog and print the profile derived from it.

The base profile is read from --profile, or is the default GeoTIFF profile
with the configured driver. --set overrides are applied on top.

Examples:
  rasterprofile create scenes/a.tif --set width=791 --set height=718 --set count=3
  rasterprofile create scenes/b.tif --profile a.yaml --set tiled=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := rasterprofile.ParseMode(modeName)
			if err != nil {
				return err
			}
			if !mode.Creates() {
				return fmt.Errorf("mode %q does not create datasets", mode)
			}
			items, err := parseItems(sets)
			if err != nil {
				return err
			}

			var base *rasterprofile.Profile
			if profilePath != "" {
				if base, err = loadProfile(profilePath); err != nil {
					return err
				}
			} else {
				if base, err = rasterprofile.DefaultGTiffProfile(); err != nil {
					return err
				}
				if err := base.Set(rasterprofile.KeyDriver, rasterprofile.String(opts.cfg.Driver)); err != nil {
					return err
				}
			}

			engine, err := opts.openCatalog()
			if err != nil {
				return err
			}
			defer engine.Close()

			ds, err := rasterprofile.Open(engine, args[0], mode, base, items...)
			if err != nil {
				return err
			}
			defer ds.Close()

			p, err := rasterprofile.FromDataset(ds)
			if err != nil {
				return err
			}
			return writeProfile(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a profile key (KEY=VALUE, repeatable)")
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "YAML profile to start from")
	cmd.Flags().StringVar(&modeName, "mode", "w", "Creation mode: w or w+")
	return cmd
}

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <path>",
		Short: "Print the profile of a dataset",
		Long: `Print the profile derived from a catalog dataset as YAML. The output
can be passed to create --profile to make a dataset of the same shape.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.openCatalog()
			if err != nil {
				return err
			}
			defer engine.Close()

			ds, err := rasterprofile.Open(engine, args[0], rasterprofile.ModeRead, nil)
			if err != nil {
				return err
			}
			defer ds.Close()

			p, err := rasterprofile.FromDataset(ds)
			if err != nil {
				return err
			}
			return writeProfile(cmd.OutOrStdout(), p)
		},
	}
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var nodata, crs string

	cmd := &cobra.Command{
		Use:   "update <path>",
		Short: "Change the nodata value or CRS of a dataset",
		Long: `Change dataset metadata in place and print the new profile.

Examples:
  rasterprofile update scenes/a.tif --nodata 255
  rasterprofile update scenes/a.tif --nodata none --crs EPSG:3857`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.openCatalog()
			if err != nil {
				return err
			}
			defer engine.Close()

			ds, err := engine.OpenDataset(args[0], rasterprofile.ModeUpdate)
			if err != nil {
				return err
			}
			defer ds.Close()

			if cmd.Flags().Changed("nodata") {
				var v *float64
				if !strings.EqualFold(nodata, "none") {
					f, err := rasterprofile.ParseValue(nodata)
					if err != nil {
						return err
					}
					n, ok := f.Number()
					if !ok {
						return fmt.Errorf("nodata %q is not a number", nodata)
					}
					v = &n
				}
				if err := ds.SetNodata(v); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("crs") {
				var c *rasterprofile.CRS
				if !strings.EqualFold(crs, "none") {
					if c, err = rasterprofile.ParseCRS(crs); err != nil {
						return err
					}
				}
				if err := ds.SetCRS(c); err != nil {
					return err
				}
			}

			p, err := rasterprofile.FromDataset(ds)
			if err != nil {
				return err
			}
			return writeProfile(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().StringVar(&nodata, "nodata", "", "Nodata value, or none to clear it")
	cmd.Flags().StringVar(&crs, "crs", "", "CRS as EPSG:code or WKT, or none to clear it")
	return cmd
}
