package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"legaldocs-backend/internal/analysis"
	"legaldocs-backend/internal/cache"
	"legaldocs-backend/internal/credentials"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/extract"
	"legaldocs-backend/internal/inference"
	"legaldocs-backend/internal/jobs"
	"legaldocs-backend/internal/realtime"
	"legaldocs-backend/internal/shared/config"
	"legaldocs-backend/internal/shared/server"
	"legaldocs-backend/internal/shared/storage/db"
	"legaldocs-backend/internal/shared/storage/object"
	localstore "legaldocs-backend/internal/shared/storage/object/local"
	s3store "legaldocs-backend/internal/shared/storage/object/s3"
)

// App holds the shared dependencies behind the HTTP surface.
type App struct {
	Config config.Config
	Router *gin.Engine

	DB    *sql.DB
	Cache *cache.Cache
	Store object.ObjectStore

	Rotator   *credentials.Rotator
	Inference *inference.Client
	Extractor *extract.Extractor

	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	Processor        *analysis.Processor
	Scheduler        *jobs.Scheduler
	Realtime         *realtime.Manager
}

// Build constructs the full dependency graph and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resultCache, err := cache.New(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	rotator, err := credentials.NewRotator(cfg.InferenceTokens, cfg.CredentialCooldown)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}

	client, err := inference.NewClient(rotator, cfg.InferenceAPIURL, cfg.InferenceModel,
		cfg.MaxAttempts, cfg.RetryBaseDelay, cfg.InferenceTimeout)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	var docRepo documents.Repo
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
	} else {
		docRepo = documents.NewMemoryRepo()
	}
	docSvc := &documents.Service{Store: store, Repo: docRepo}

	extractor := &extract.Extractor{
		OCR: extract.NewCommandOCR(cfg.RasterCommand, cfg.OCRCommand),
	}

	processor := &analysis.Processor{
		Docs:      docSvc,
		Extractor: extractor,
		Inference: client,
		Cache:     resultCache,
		ChunkSize: cfg.ChunkSize,
	}

	scheduler := jobs.NewScheduler(processor, resultCache, cfg.WorkerCount)
	manager := realtime.NewManager()
	rtHandler := realtime.NewHandler(manager, scheduler)
	scheduler.OnComplete(rtHandler.JobCompleted)

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Cache:            resultCache,
		Store:            store,
		Rotator:          rotator,
		Inference:        client,
		Extractor:        extractor,
		DocumentsRepo:    docRepo,
		DocumentsService: docSvc,
		Processor:        processor,
		Scheduler:        scheduler,
		Realtime:         manager,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Documents: documents.NewHandler(docSvc),
		Jobs:      jobs.NewHandler(scheduler, processor),
		Realtime:  rtHandler,
	})

	return app, nil
}

// Close releases the app's resources in dependency order.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Close()
	}
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
