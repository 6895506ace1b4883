package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	rasterprofile "github.com/tingold/orb-rasterprofile"
	"github.com/tingold/orb-rasterprofile/engine/catalog"
	"github.com/tingold/orb-rasterprofile/internal/config"
)

// rootOptions is the state shared by all subcommands of one invocation.
type rootOptions struct {
	configPath string
	catalogDir string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd returns the rasterprofile command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "rasterprofile",
		Short: "Raster dataset profiles",
		Long: `rasterprofile manages raster dataset profiles: the creation parameters
of a dataset (driver, size, band count, data type, tiling, georeferencing)
kept as a typed key/value map. Datasets are recorded in a local catalog.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd, false)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVarP(&opts.catalogDir, "catalog", "d", "", "Catalog directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Logging level: debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(
		newDefaultsCmd(opts),
		newCreateCmd(opts),
		newInfoCmd(opts),
		newUpdateCmd(opts),
		newListCmd(opts),
		newRemoveCmd(opts),
		newIndexCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// load reads the config file, applies flag overrides and sets up logging.
// With allowMissing, a --config file that does not exist yet is not an error.
func (o *rootOptions) load(cmd *cobra.Command, allowMissing bool) error {
	path := o.configPath
	explicit := path != ""
	if !explicit {
		path = config.GetDefaultConfigPath()
	}

	o.cfg = config.DefaultConfig()
	exists := config.ConfigExists(path)
	if exists || (explicit && !allowMissing) {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		o.cfg = cfg
	}
	o.configPath = path

	if o.catalogDir != "" {
		o.cfg.CatalogDir = o.catalogDir
	}
	if o.logLevel != "" {
		o.cfg.Logging.Level = o.logLevel
	}
	level, err := config.ParseLevel(o.cfg.Logging.Level)
	if err != nil {
		return err
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// openCatalog opens the configured catalog, creating its directory.
func (o *rootOptions) openCatalog() (*catalog.Engine, error) {
	if err := os.MkdirAll(o.cfg.CatalogDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create catalog dir: %w", err)
	}
	return catalog.Open(o.cfg.CatalogDir, &catalog.Options{Logger: o.logger, Sync: true})
}

// parseItems parses repeated --set KEY=VALUE flags.
func parseItems(sets []string) ([]rasterprofile.Item, error) {
	items := make([]rasterprofile.Item, 0, len(sets))
	for _, s := range sets {
		item, err := rasterprofile.ParseItem(s)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// loadProfile reads a YAML profile file.
func loadProfile(path string) (*rasterprofile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	p := &rasterprofile.Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return p, nil
}

func writeProfile(w io.Writer, p *rasterprofile.Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}
