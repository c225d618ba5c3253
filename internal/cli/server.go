package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"kids-activity-service/internal/app"
	"kids-activity-service/internal/catalog"
	"kids-activity-service/internal/config"
	"kids-activity-service/internal/content"
	"kids-activity-service/internal/infra/memory"
	"kids-activity-service/internal/infra/postgres"
	redisinfra "kids-activity-service/internal/infra/redis"
	"kids-activity-service/internal/platform/logger"
	transport "kids-activity-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the activity server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServer(cmd.Context(), cfg, log, *port)
		},
	}
}

type backends struct {
	activityLoader memory.ActivityLoader
	catalogLoader  memory.CatalogLoader
	results        app.ResultRecorder
	closers        []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends picks Postgres when configured, the embedded content bundle otherwise.
func openBackends(ctx context.Context, cfg config.Config, log *logger.Logger) (*backends, error) {
	if cfg.Postgres.URL == "" {
		bundle, err := content.Load()
		if err != nil {
			return nil, err
		}
		log.Info("serving embedded content", "activities", len(bundle.Activities), "catalogs", len(bundle.Catalogs))
		return &backends{
			activityLoader: memory.NewStaticActivityLoader(bundle.Activities),
			catalogLoader:  memory.NewStaticCatalogLoader(bundle.Catalogs),
			results:        memory.NewResultStore(),
		}, nil
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	if err := migrateDB(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &backends{
		activityLoader: postgres.NewActivityLoader(pool),
		catalogLoader:  postgres.NewCatalogLoader(pool),
		results:        postgres.NewResultStore(db),
		closers:        []func(){func() { _ = db.Close() }, pool.Close},
	}, nil
}

func runServer(ctx context.Context, cfg config.Config, log *logger.Logger, portFlag string) error {
	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	be, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	activityTTL := config.TTLDuration(cfg.Activity.CacheTTL, 10*time.Minute)

	var activities app.ActivityRepository
	var store app.PlaythroughRepository
	if redisClient != nil {
		activities = redisinfra.NewActivityRepository(redisClient, be.activityLoader, activityTTL)
		store = redisinfra.NewPlaythroughStore(redisClient, redisTTL)
	} else {
		activities = memory.NewActivityRepository(be.activityLoader, activityTTL)
		store = memory.NewPlaythroughStore()
	}

	linker := catalog.NewLinker(memory.NewCatalogRepository(be.catalogLoader), log)
	service := app.NewPlayService(activities, linker, store,
		app.WithResultRecorder(be.results),
		app.WithLogger(log),
	)
	handler := transport.NewPlayHandler(service, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.Routes(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting activity service", "port", finalPort, "redis", redisClient != nil, "postgres", cfg.Postgres.URL != "")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
