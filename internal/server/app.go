// Package server initializes and runs the main application server.
// It opens the database, applies migrations, bootstraps the administrator,
// wires the provider client and services, and runs the HTTP API next to
// the gRPC health service until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/aiexplorer/internal/dbx"
	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/netx"
	"github.com/dmitrijs2005/aiexplorer/internal/server/api"
	"github.com/dmitrijs2005/aiexplorer/internal/server/artifacts"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/provider"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aiexplorer/internal/server/services"

	gs "github.com/dmitrijs2005/aiexplorer/internal/server/grpc"
)

// test seams
var (
	openDB         = dbx.Open
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newArchive     = func(ctx context.Context, opts artifacts.Options) (services.ArtifactStore, error) {
		return artifacts.New(ctx, opts)
	}
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *api.Server
	health *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := openDB("pgx", c.DatabaseDSN, dbx.PoolOptions{
		MaxOpenConns: c.DBMaxOpenConns,
		MaxIdleConns: c.DBMaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, db *sql.DB, logger logging.Logger) (*App, error) {
	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us := services.NewUserService(db, rm, c, logger)

	if c.AdminUsername != "" && c.AdminPassword != "" {
		if _, err := us.EnsureAdmin(ctx, c.AdminUsername, c.AdminPassword); err != nil {
			return nil, fmt.Errorf("admin bootstrap error: %w", err)
		}
	}

	pc := provider.New(provider.Options{
		SearchURL:      c.SearchServerURL,
		ImageURL:       c.ImageServerURL,
		APIKey:         c.ProviderAPIKey,
		SearchTool:     c.SearchToolName,
		ImageTool:      c.ImageToolName,
		MaxConcurrency: int64(c.ProviderMaxConcurrency),
		HTTPClient:     netx.NewHTTPClient(0),
		Logger:         logger,
	})

	var store services.ArtifactStore
	if c.ArchiveEnabled() {
		s, err := newArchive(ctx, artifacts.Options{
			Region:    c.S3Region,
			AccessKey: c.S3RootUser,
			SecretKey: c.S3RootPassword,
			Endpoint:  c.S3BaseEndpoint,
			Bucket:    c.S3Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		store = s
	}

	svc := api.Services{
		Users:     us,
		Search:    services.NewSearchService(db, rm, pc, c, logger),
		Image:     services.NewImageService(db, rm, pc, store, c, logger),
		Records:   services.NewRecordService(db, rm, store, c, logger),
		Dashboard: services.NewDashboardService(db, rm, store, c, logger),
		Admin:     services.NewAdminService(db, rm, c, logger),
		DB:        db,
	}

	return &App{
		config: c,
		logger: logger,
		db:     db,
		http:   api.NewServer(c.HTTPAddr, c.CORSOrigins, svc, logger),
		health: gs.NewHealthServer(c.GRPCHealthAddr, logger, db, 0),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

type runner interface {
	Run(ctx context.Context) error
}

// serve runs r and cancels everything else if it fails.
func (app *App) serve(ctx context.Context, cancelFunc context.CancelFunc, name string, r runner) {
	if err := r.Run(ctx); err != nil {
		app.logger.Error(ctx, name+" server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", provider.Version)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "http", app.http)
	}()
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "grpc", app.health)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
