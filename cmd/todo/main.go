package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"duely/internal/app"
	"duely/internal/config"
	"duely/internal/logging"
	"duely/internal/storage"
)

var version = "dev"

type flags struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
	LogFile    string
}

// env is filled by the Before hook and shared by every command.
type env struct {
	flags     flags
	cfg       config.Config
	store     *storage.Store
	svc       *app.Service
	logCloser func()
}

func main() {
	os.Exit(run(context.Background(), os.Args))
}

func run(ctx context.Context, args []string) int {
	e := &env{}

	root := &cli.Command{
		Name:      "todo",
		Usage:     "Todos grouped by when they are due",
		UsageText: "todo [global options] [command [command options]]",
		Description: `Run 'todo' with no arguments in a terminal to open the interactive list.
Without a terminal the grouped list is printed instead.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars(config.EnvConfig),
				Value:       config.ResolveConfigPath(),
				Destination: &e.flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "db",
				Usage:       "path to the SQLite database (overrides db_path)",
				Sources:     cli.EnvVars("DUELY_DB"),
				Destination: &e.flags.DBPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("DUELY_LOG_LEVEL"),
				Destination: &e.flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (overrides [log] file)",
				Sources:     cli.EnvVars("DUELY_LOG_FILE"),
				Destination: &e.flags.LogFile,
			},
		},
		Before: e.before,
		After:  e.after,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() > 0 {
				return fmt.Errorf("unknown command %q. Run 'todo --help' for usage", c.Args().First())
			}
			return e.runDefault(ctx, c)
		},
		Commands: e.commands(),
	}

	if err := root.Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (e *env) before(ctx context.Context, c *cli.Command) (context.Context, error) {
	cfg, err := config.LoadOrCreate(e.flags.ConfigPath)
	if err != nil {
		return ctx, fmt.Errorf("load config: %w", err)
	}
	if e.flags.DBPath != "" {
		cfg.DBPath = e.flags.DBPath
	}
	if e.flags.LogLevel != "" {
		cfg.Log.Level = e.flags.LogLevel
	}
	if e.flags.LogFile != "" {
		cfg.Log.File = e.flags.LogFile
	}
	e.cfg = cfg

	// Always log to a file so nothing is drawn over the TUI.
	logger, closer, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return ctx, fmt.Errorf("setup logger: %w", err)
	}
	log.Logger = logger
	e.logCloser = closer
	return ctx, nil
}

// open connects to the database on first use so that commands such as
// "config path" never touch it.
func (e *env) open() error {
	if e.svc != nil {
		return nil
	}
	store, err := storage.Open(e.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	e.store = store
	e.svc = app.NewService(store, nil, nil, logging.Component("app"))
	log.Debug().Str("db", e.cfg.DBPath).Msg("database opened")
	return nil
}

func (e *env) after(ctx context.Context, c *cli.Command) error {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
			return err
		}
	}
	if e.logCloser != nil {
		e.logCloser()
	}
	return nil
}
