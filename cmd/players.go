package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/bisegni/jsoncsv/pkg/config"
	"github.com/bisegni/jsoncsv/pkg/source"
)

var playersOut string

var playersCmd = &cobra.Command{
	Use:   "players [file]",
	Short: "Export uniformly shaped player records",
	Long: `Export player records (id, name, instrument, creationDate) with a fixed
header and no cache. Players come from a JSON file, a MongoDB collection or a
SQL table.

Examples:
  jsoncsv players players.json
  jsoncsv players --from mongo --mongo-uri mongodb://localhost:27017
  jsoncsv players --from sql --sql-driver postgres --dsn 'postgres://localhost/band?sslmode=disable'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlayers,
}

func init() {
	playersCmd.Flags().StringVarP(&playersOut, "out", "o", "", "Output file (default: stdout)")
	addPlayerFlags(playersCmd.Flags())
}

// addPlayerFlags registers the player source flags on fs.
func addPlayerFlags(fs *pflag.FlagSet) {
	p := &cfg.Players
	fs.StringVar(&p.Kind, "from", p.Kind, "Player source: json, mongo or sql")
	fs.StringVar(&p.Path, "players-file", "", "JSON file holding an array of players")
	fs.StringVar(&p.MongoURI, "players-mongo-uri", "", "MongoDB connection URI")
	fs.StringVar(&p.Database, "players-db", p.Database, "MongoDB database")
	fs.StringVar(&p.Collection, "players-collection", p.Collection, "MongoDB collection")
	fs.StringVar(&p.SQLDriver, "sql-driver", p.SQLDriver, "SQL driver: sqlite, postgres or mysql")
	fs.StringVar(&p.DSN, "dsn", "", "SQL data source name")
	fs.StringVar(&p.Table, "table", p.Table, "SQL table")
}

// openPlayers builds the configured player source. The returned cleanup
// releases any connection it opened.
func openPlayers(ctx context.Context, p config.PlayersConfig) (source.Players, func(), error) {
	if err := config.Validate(&p); err != nil {
		return nil, nil, err
	}
	switch p.Kind {
	case "mongo":
		client, err := source.ConnectMongo(ctx, p.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		coll := client.Database(p.Database).Collection(p.Collection)
		return source.MongoPlayers{Collection: coll}, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				klog.ErrorS(err, "Failed to disconnect from MongoDB")
			}
		}, nil
	case "sql":
		db, err := source.OpenSQL(ctx, p.SQLDriver, p.DSN)
		if err != nil {
			return nil, nil, err
		}
		return source.SQLPlayers{DB: db, Table: p.Table}, func() { db.Close() }, nil
	case "json":
		return source.JSONPlayers{Path: p.Path}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown player source %q", p.Kind)
}

func runPlayers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if len(args) > 0 {
		cfg.Players.Kind = "json"
		cfg.Players.Path = args[0]
	}

	e, err := cfg.Exporter()
	if err != nil {
		return err
	}
	players, cleanup, err := openPlayers(ctx, cfg.Players)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := openOutput(playersOut, cfg.Gzip)
	if err != nil {
		return err
	}
	res, err := e.ExportUniform(ctx, players, out)
	if cerr := out.Close(err != nil); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	klog.V(1).InfoS("Exported players", "rows", res.Rows, "duration", res.Duration)
	return nil
}
