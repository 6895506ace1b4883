package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tingold/orb-rasterprofile/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr      string
		noMetrics bool
		name      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Long: `Serve the catalog over HTTP until interrupted.

Endpoints:
  GET /datasets              dataset paths as JSON
  GET /datasets/{path}       derived profile of a dataset as YAML
  GET /footprints.fgb        FlatGeobuf footprint index (?bbox=minx,miny,maxx,maxy)
  GET /footprints.geojson    the same footprints as GeoJSON
  GET /health                liveness
  GET /metrics               Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.cfg.Server.Addr
			}
			metrics := opts.cfg.Server.Metrics && !noMetrics

			engine, err := opts.openCatalog()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(engine, &server.Options{
				Logger:    opts.logger,
				Metrics:   metrics,
				IndexName: name,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable the /metrics endpoint")
	cmd.Flags().StringVar(&name, "name", "footprints", "Layer name of served indexes")
	return cmd
}
