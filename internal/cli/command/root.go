// Package command provides CLI command definitions for clubmesh.
//
// It uses urfave/cli/v2 for command parsing. Commands operate on the
// SQLite store directly; there is no server process.
package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/clubmesh-go/internal/core/service"
	"github.com/yndnr/clubmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/clubmesh-go/internal/infra/confloader"
	"github.com/yndnr/clubmesh-go/internal/storage/sqlite"
	"github.com/yndnr/clubmesh-go/internal/telemetry/logger"
)

// DefaultStorePath is used when neither flag, env, nor config file
// names a database.
const DefaultStorePath = "clubmesh.db"

// Config is the CLI configuration, loadable from a YAML file and
// CLUBMESH_* environment variables.
type Config struct {
	Store struct {
		Path string `koanf:"path"`
		Pool int    `koanf:"pool"`
	} `koanf:"store"`
	Token struct {
		DefaultTTL time.Duration `koanf:"default_ttl"`
		RateLimit  int           `koanf:"rate_limit"`
	} `koanf:"token"`
	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
}

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "clubmesh",
		Usage:   "Clubhouse token and follow graph management tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			TokenCommand(),
			FollowCommand(),
			UnfollowCommand(),
			FollowingCommand(),
			FollowersCommand(),
			ClubhouseCommand(),
			StatsCommand(),
			ExportCommand(),
			ImportCommand(),
		},
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to the SQLite database file",
			EnvVars: []string{"CLUBMESH_STORE_PATH"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"CLUBMESH_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	DB     string
	Config string

	// Output format
	Output string // table, json, yaml
	Wide   bool

	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		DB:      c.String("db"),
		Config:  c.String("config"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// loadConfig resolves the effective configuration: flags override
// environment, environment overrides the config file.
func loadConfig(c *cli.Context) (*Config, error) {
	flags := ParseGlobalFlags(c)

	loader := confloader.NewLoader(confloader.WithConfigFile(flags.Config))

	var cfg Config
	if err := loader.Load(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flags.DB != "" {
		cfg.Store.Path = flags.DB
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Token.DefaultTTL <= 0 {
		cfg.Token.DefaultTTL = 24 * time.Hour
	}
	if flags.Verbose {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Level != "" {
		logger.SetLevel(cfg.Log.Level)
	}

	return &cfg, nil
}

// withManager opens the store, builds a manager, runs fn, and closes
// the store. Extra options are appended after the configured ones.
func withManager(c *cli.Context, fn func(ctx context.Context, cfg *Config, m *service.Manager) error, extra ...service.Option) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(sqlite.Config{
		Path:     cfg.Store.Path,
		PoolSize: cfg.Store.Pool,
	})
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	defer store.Close()

	ctx := c.Context
	opts := []service.Option{}
	if cfg.Token.RateLimit > 0 {
		opts = append(opts, service.WithIssueRateLimit(cfg.Token.RateLimit))
	}
	opts = append(opts, extra...)

	m, err := service.New(ctx, store, opts...)
	if err != nil {
		return err
	}

	return fn(ctx, cfg, m)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
