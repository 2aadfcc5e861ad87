package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/bisegni/jsoncsv/pkg/config"
	"github.com/bisegni/jsoncsv/pkg/server"
	"github.com/bisegni/jsoncsv/pkg/source"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve CSV exports over HTTP",
	Long: `Serve CSV downloads over HTTP.

Routes:
  GET /csvfromfile?name=<stream>  two-pass export of a registered JSON file
  GET /csv                        uniform player export (needs a player source)
  GET /streams                    registered stream names
  GET /healthz                    liveness

Responses are gzip encoded when the client accepts it.

Examples:
  jsoncsv serve --stream complex=complex.json
  jsoncsv serve --addr :9000 --stream a=a.json --stream b=b.json --default-stream b
  jsoncsv serve --stream complex=complex.json --from sql --dsn band.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	s := &cfg.Serve
	serveCmd.Flags().StringVar(&s.Addr, "addr", s.Addr, "Listen address")
	serveCmd.Flags().StringToStringVar(&s.Streams, "stream", s.Streams, "Register a JSON file as name=path (repeatable)")
	serveCmd.Flags().StringVar(&s.DefaultStream, "default-stream", "", "Stream served when ?name= is missing (default: the only stream)")
	serveCmd.Flags().StringVar(&s.Filename, "filename", s.Filename, "Attachment filename offered to clients")
	addPlayerFlags(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Validate(&cfg.Serve); err != nil {
		return err
	}
	e, err := cfg.Exporter()
	if err != nil {
		return err
	}

	catalog := source.NewCatalog()
	for name, path := range cfg.Serve.Streams {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("stream %s: %w", name, err)
		}
		catalog.Register(name, source.File{Path: path})
	}
	def := cfg.Serve.DefaultStream
	if def == "" && len(cfg.Serve.Streams) == 1 {
		def = catalog.Names()[0]
	}
	if def != "" {
		if _, err := catalog.Get(def); err != nil {
			return fmt.Errorf("default stream: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{
		Exporter:      e,
		Catalog:       catalog,
		DefaultStream: def,
		Filename:      cfg.Serve.Filename,
	}
	if cfg.Players.Kind != "json" || cfg.Players.Path != "" {
		players, cleanup, err := openPlayers(ctx, cfg.Players)
		if err != nil {
			return err
		}
		defer cleanup()
		srv.Players = players
	}

	if !klog.V(2).Enabled() {
		gin.SetMode(gin.ReleaseMode)
	}
	klog.InfoS("Serving streams", "streams", catalog.Names(), "default", def, "players", srv.Players != nil)
	return srv.Run(ctx, cfg.Serve.Addr)
}
