package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fontpeek/fontpeek/internal/config"
	"github.com/fontpeek/fontpeek/internal/dafont"
	"github.com/fontpeek/fontpeek/internal/database"
	"github.com/fontpeek/fontpeek/internal/database/fonts"
	"github.com/fontpeek/fontpeek/internal/database/kvstore"
	"github.com/fontpeek/fontpeek/internal/database/legacy"
	http_controllers "github.com/fontpeek/fontpeek/internal/http"
	"github.com/fontpeek/fontpeek/internal/jobs"
	"github.com/fontpeek/fontpeek/internal/preview"
	"github.com/fontpeek/fontpeek/internal/scheduler"
	"github.com/fontpeek/fontpeek/internal/syncer"
	"github.com/fontpeek/fontpeek/internal/tasks"
	"github.com/fontpeek/fontpeek/internal/updater"
)

// FallbackCategory is assigned to legacy rows, which carry no category.
const FallbackCategory = "fantasia"

// Components are the wired core services shared by the server and the CLI
// commands.
type Components struct {
	Config    *config.Config
	DB        *database.Database
	KV        *kvstore.Repository
	Fonts     *fonts.Repository
	Client    *dafont.Client
	Pipeline  *preview.Pipeline
	Syncer    *syncer.Service
	Updater   *updater.Service
	Refresher *Refresher
}

// Build wires config into the core services. Callers own the result and must
// Close it.
func Build(cfg *config.Config) (*Components, error) {
	for _, path := range []string{cfg.Database.Path, cfg.Database.KVPath, cfg.Database.CatalogPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := database.NewDatabase(cfg.Database.Path, cfg.Remote.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	kv, err := kvstore.Open(cfg.Database.KVPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize key-value store: %w", err)
	}

	repo := fonts.NewRepository(db.DB)

	client := dafont.NewClient(dafont.Options{
		BaseURL:     cfg.Remote.BaseURL,
		DownloadURL: cfg.Remote.DownloadURL,
		Timeout:     cfg.Remote.Timeout,
		MinDelay:    cfg.Remote.MinDelay,
		MaxDelay:    cfg.Remote.MaxDelay,
		MaxAttempts: cfg.Remote.MaxAttempts,
	})

	pipeline, err := preview.NewPipeline(cfg.Cache.Dir, client, kv)
	if err != nil {
		kv.Close()
		db.Close()
		return nil, fmt.Errorf("initialize preview cache: %w", err)
	}

	syncService := syncer.New(kv, cfg.Remote.CatalogDBURL, cfg.Sync.Timeout)
	importer := legacy.NewImporter(repo, FallbackCategory)
	updateService := updater.NewService(db, repo, client)

	return &Components{
		Config:    cfg,
		DB:        db,
		KV:        kv,
		Fonts:     repo,
		Client:    client,
		Pipeline:  pipeline,
		Syncer:    syncService,
		Updater:   updateService,
		Refresher: NewRefresher(syncService, importer, updateService, repo, cfg.Database.CatalogPath),
	}, nil
}

// Close releases the database handles.
func (c *Components) Close() {
	if err := c.KV.Close(); err != nil {
		log.Printf("Error closing key-value store: %v", err)
	}
	if err := c.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the job queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

type jobsEnqueuer struct {
	client *jobs.Client
}

func (e *jobsEnqueuer) EnqueueRefresh(trigger string) error {
	_, err := e.client.Add(jobs.RefreshCatalogTask{Trigger: trigger}).Save()
	return err
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting fontpeek v%s", version)

	components, err := Build(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	executor := tasks.NewExecutor(cfg.Tasks.Workers)

	// Initialize the maintenance job queue if enabled
	var jobClient *jobs.Client
	var jobCtxCancel context.CancelFunc
	var enqueueRefresh func(trigger string) error
	if cfg.Jobs.Enabled {
		jobClient, err = jobs.NewClient(cfg.Database.Path, jobs.Config{
			Workers:           cfg.Jobs.Workers,
			ReleaseAfter:      cfg.Jobs.ReleaseAfter,
			CleanupInterval:   cfg.Jobs.CleanupInterval,
			RetentionDuration: cfg.Jobs.RetentionDuration,
		})
		if err != nil {
			log.Fatalf("Failed to initialize job queue: %v", err)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				log.Printf("Error closing job client: %v", err)
			}
		}()

		jobClient.Register(jobs.NewRefreshCatalogQueue(components.Refresher))

		var jobCtx context.Context
		jobCtx, jobCtxCancel = context.WithCancel(context.Background())
		go jobClient.Start(jobCtx)

		enqueueRefresh = (&jobsEnqueuer{client: jobClient}).EnqueueRefresh
	}

	// Start the automatic refresh scheduler when the queue is available
	var autoRefresh *scheduler.AutoRefreshScheduler
	if enqueueRefresh != nil {
		autoRefresh = scheduler.NewAutoRefreshScheduler(&jobsEnqueuer{client: jobClient}, cfg.AutoRefresh)
		if err := autoRefresh.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start auto refresh scheduler: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database: components.DB,
		Version:  version,
		Fonts:    components.Fonts,
		SyncMeta: components.KV,
		Remote:   components.Client,
		Pipeline: components.Pipeline,
		Executor: executor,
		SyncCatalog: func(ctx context.Context, progress func(string)) (any, error) {
			return components.Refresher.SyncCatalog(ctx, progress)
		},
		EnqueueRefresh: enqueueRefresh,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if autoRefresh != nil {
			autoRefresh.Stop()
		}
		if jobClient != nil && jobCtxCancel != nil {
			jobClient.Stop(ctx)
			jobCtxCancel()
		}
		executor.Shutdown()
		if cfg.Cache.PurgeOnExit {
			if err := components.Pipeline.PurgeAll(); err != nil {
				log.Printf("Error purging preview cache: %v", err)
			} else {
				log.Printf("Preview cache purged")
			}
		}
	}

	Serve(router, cfg, onShutdown)
}
