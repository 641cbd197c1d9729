package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pokertracker/internal/auth"
	"pokertracker/internal/cli"
	"pokertracker/internal/config"
	"pokertracker/internal/log"
	"pokertracker/internal/services"
	"pokertracker/internal/storage"
)

type rootOptions struct {
	dbPath  string
	user    string
	verbose bool
}

// app is what every subcommand works with once the database is open.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	repo     *storage.SQLiteRepository
	sessions *services.SessionService
	stats    *services.StatsService
	auth     *services.AuthService
	identity auth.Identity
	now      func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pokerctl",
		Short: "Track poker sessions from the terminal",
		Long: `pokerctl records poker sessions and reports profit, hours and hourly rate.
It works on the same SQLite database as the API server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default from SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&opts.user, "user", "", "email of the user to act as (default from POKERCTL_USER)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level to stderr")

	root.AddCommand(
		newMigrateCmd(opts),
		newUserCmd(opts),
		newAddCmd(opts),
		newListCmd(opts),
		newStatsCmd(opts),
		newExportCmd(opts),
		newTokenCmd(opts),
		newSheetsAuthCmd(),
	)
	return root
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := cli.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.dbPath != "" {
		cfg.SQLiteDBPath = opts.dbPath
	}
	if cfg.SQLiteDBPath == "" {
		return nil, errors.New("no database path: pass --db or set SQLITE_DB_PATH")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, verbose bool) *log.Logger {
	level := log.ParseLevel("warn")
	if verbose {
		level = log.ParseLevel("debug")
	}
	logger := log.New(log.Config{Level: level, Format: cfg.LogFormat, Output: os.Stderr, Component: log.ComponentCLI})
	log.SetDefault(logger)
	return logger
}

// withApp opens the database, wires the services and, when needUser is set,
// resolves --user to an identity before running fn.
func withApp(opts *rootOptions, needUser bool, fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(opts)
		if err != nil {
			return err
		}
		logger := newLogger(cfg, opts.verbose)

		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return fmt.Errorf("open database %s: %w", cfg.SQLiteDBPath, err)
		}
		defer repo.Close()

		statsSvc := services.NewStatsService(repo, 0, logger)
		a := &app{
			cfg:      cfg,
			logger:   logger,
			repo:     repo,
			sessions: services.NewSessionService(repo, nil, statsSvc, logger),
			stats:    statsSvc,
			auth:     services.NewAuthService(repo, auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), cfg.BcryptCost, logger),
			now:      time.Now,
		}

		if needUser {
			if a.identity, err = resolveUser(cmd.Context(), repo, opts.user); err != nil {
				return err
			}
		}
		return fn(cmd, args, a)
	}
}

func resolveUser(ctx context.Context, users storage.UserStore, email string) (auth.Identity, error) {
	if email == "" {
		email = os.Getenv("POKERCTL_USER")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return auth.Identity{}, errors.New("no user selected: pass --user or set POKERCTL_USER")
	}
	u, err := users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return auth.Identity{}, fmt.Errorf("no user with email %s (create one with 'pokerctl user add')", email)
	}
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: u.ID}, nil
}
