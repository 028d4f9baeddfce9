package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/library-admin/cmd/api/book"
	"github.com/library-admin/cmd/api/config"
	"github.com/library-admin/cmd/api/database"
	bookhttp "github.com/library-admin/cmd/api/http"
	"github.com/library-admin/cmd/api/inmemory"
	"github.com/library-admin/cmd/api/logger"
	"github.com/library-admin/cmd/api/notifications"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "books-admin",
		Short:        "Library administration API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/app.yaml", "path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), configPath)
			},
		},
		newMigrateCmd(&configPath),
		newHashPasswordCmd(),
	)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	zlog := logger.SetupLogger(cfg.Debug, cfg.LogFormat)
	zlog.Info().Str("driver", cfg.DB.Driver).Str("password_scheme", cfg.PasswordScheme).Msg("starting books-admin")

	provider, closeProvider, err := openProvider(cfg, zlog)
	if err != nil {
		return err
	}
	defer closeProvider()

	ntfy := notifications.NewNtfy(cfg.Notifications.Enabled, cfg.Notifications.Timeout, cfg.Notifications.BaseURL)
	bookService := book.NewService(provider, ntfy, cfg.Notifications.Timeout, book.PasswordScheme(cfg.PasswordScheme), zlog)
	bookHandler := bookhttp.NewBookHandler(bookService, cfg.RequestTimeout, zlog)

	//create and init http server:
	server := bookhttp.NewServer(bookhttp.ServerConfig{Port: cfg.Port}, bookHandler, zlog)

	group, gCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		zlog.Info().Str("addr", server.Addr).Msg("http server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("unexpected http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownRelease()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP shutdown error: %w", err)
		}
		zlog.Info().Msg("Graceful shutdown complete.")
		return nil
	})

	if err := group.Wait(); err != nil {
		zlog.Error().Err(err).Msg("server stopped")
		return err
	}
	return nil
}

/* Builds the connection provider for the configured driver. SQL drivers are migrated before use. */
func openProvider(cfg *config.Config, zlog *zerolog.Logger) (book.Provider, func(), error) {
	if cfg.DB.Driver == config.DriverMemory {
		store, err := inmemory.NewInMemoryStore(cfg.AdminUsers()...)
		if err != nil {
			return nil, nil, err
		}
		zlog.Warn().Msg("using the in-memory store, data is lost on exit")
		return store, func() {}, nil
	}

	store, dbObject, err := connectAndMigrate(cfg, zlog)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := dbObject.Close(); err != nil {
			zlog.Error().Err(err).Msg("closing database")
		}
	}
	return store, closeDB, nil
}

func connectAndMigrate(cfg *config.Config, zlog *zerolog.Logger) (*database.Store, interface{ Close() error }, error) {
	//connect to db:
	dbObject, err := database.ConnectDb(cfg.DB.Driver, cfg.DB.ConnString())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting with db: %w", err)
	}

	//apply migrations:
	store := database.NewStore(dbObject, cfg.DB.Driver)
	err = database.MigrationUp(store, cfg.MigrationsPath)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		zlog.Debug().Msg("database schema up to date")
	case err != nil:
		dbObject.Close()
		return nil, nil, fmt.Errorf("migrating: %w", err)
	default:
		zlog.Info().Str("path", cfg.MigrationsPath).Msg("migrations applied")
	}
	return store, dbObject, nil
}
