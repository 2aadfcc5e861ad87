package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bisegni/jsoncsv/pkg/cache"
	"github.com/bisegni/jsoncsv/pkg/columns"
	"github.com/bisegni/jsoncsv/pkg/export"
	"github.com/bisegni/jsoncsv/pkg/source"
)

// Config carries the settings shared by every command.
type Config struct {
	// CacheDir holds one uniquely named cache file per export.
	CacheDir string `validate:"excluded_with=CacheFile"`
	// CacheFile pins every export to a single well-known cache file.
	CacheFile string
	KeepCache bool
	RFC4180   bool
	Columns   string
	Gzip      bool

	Serve   ServeConfig   `validate:"-"`
	Watch   WatchConfig   `validate:"-"`
	Players PlayersConfig `validate:"-"`
}

// ServeConfig configures the HTTP transport.
type ServeConfig struct {
	Addr string `validate:"required,hostname_port"`
	// Streams maps catalog names to JSON files.
	Streams       map[string]string `validate:"dive,keys,required,endkeys,required"`
	DefaultStream string
	Filename      string
}

// WatchConfig configures the directory watcher.
type WatchConfig struct {
	Dir    string        `validate:"required,dir"`
	Out    string
	Settle time.Duration `validate:"gte=0"`
}

// PlayersConfig selects where uniform player records come from.
type PlayersConfig struct {
	Kind       string `validate:"required,oneof=json mongo sql"`
	Path       string `validate:"required_if=Kind json"`
	MongoURI   string `validate:"required_if=Kind mongo"`
	Database   string `validate:"required_if=Kind mongo"`
	Collection string `validate:"required_if=Kind mongo"`
	SQLDriver  string `validate:"omitempty,oneof=sqlite postgres mysql"`
	DSN        string `validate:"required_if=Kind sql"`
	Table      string
}

// Default returns a Config with every default filled in.
func Default() *Config {
	return &Config{
		Serve: ServeConfig{
			Addr:     ":8080",
			Streams:  map[string]string{},
			Filename: "myData.csv",
		},
		Watch: WatchConfig{
			Settle: 500 * time.Millisecond,
		},
		Players: PlayersConfig{
			Kind:       "json",
			Database:   "jsoncsv",
			Collection: "players",
			SQLDriver:  source.DriverSQLite,
			Table:      "players",
		},
	}
}

var validate = validator.New()

// Validate checks v, which is a Config or one of its sections, and joins
// every violation into one error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, strings.Replace(fe.Param(), " ", " is ", 1))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "excluded_with":
		return fmt.Sprintf("%s cannot be combined with %s", field, fe.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", field, fe.Value())
	case "dir":
		return fmt.Sprintf("%s must be an existing directory, got %q", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %q", field, fe.Tag())
}

// Provider returns the cache provider described by the cache flags.
func (c *Config) Provider() cache.Provider {
	if c.CacheFile != "" {
		return cache.NewFixed(c.CacheFile)
	}
	return cache.TempDir{Dir: c.CacheDir}
}

// Exporter validates c and builds the exporter it describes.
func (c *Config) Exporter() (*export.Exporter, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	e := export.NewExporter(c.Provider())
	e.KeepCache = c.KeepCache
	e.Escape = c.RFC4180
	if strings.TrimSpace(c.Columns) != "" {
		sel, err := columns.Parse(c.Columns)
		if err != nil {
			return nil, fmt.Errorf("invalid --columns: %w", err)
		}
		e.Columns = sel
	}
	return e, nil
}
