package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resume-ats/internal/debounce"
	"resume-ats/internal/llm"
	"resume-ats/internal/llm/gemini"
	"resume-ats/internal/llm/heuristic"
	openai "resume-ats/internal/llm/openai"
	"resume-ats/internal/queue"
	"resume-ats/internal/resumes"
	"resume-ats/internal/services/health"
	"resume-ats/internal/shared/config"
	"resume-ats/internal/shared/metrics"
	"resume-ats/internal/shared/server"
	"resume-ats/internal/shared/server/middleware"
	"resume-ats/internal/shared/storage/db"
	"resume-ats/internal/shared/storage/object"
	localstore "resume-ats/internal/shared/storage/object/local"
	s3store "resume-ats/internal/shared/storage/object/s3"
	"resume-ats/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Redis         redis.UniversalClient
	Store         object.ObjectStore
	Queue         queue.Client
	Provider      llm.Provider
	ResumesRepo   resumes.Repo
	ResumeService *resumes.Service
	ResumeHandler *resumes.Handler
	Sweeper       *resumes.Sweeper
	Health        *health.Service
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()
	metrics.InitMetrics()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rdb, err := buildRedis(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Redis:    rdb,
		Store:    store,
		Queue:    queueClient,
		Provider: provider,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		ResumeHandler: app.ResumeHandler,
		Health:        app.Health,
		RateLimiter:   middleware.NewRateLimiter(nil),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db_fallback", map[string]any{"err": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	metrics.RegisterDBStats(sqlDB)
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
}

func buildProvider(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.NewClient(openai.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		})
	case "gemini":
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	default:
		telemetry.Info("bootstrap.heuristic_provider", map[string]any{"llm_provider": cfg.LLMProvider})
		return heuristic.New(), nil
	}
}

func buildRedis(cfg config.Config) (redis.UniversalClient, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func buildServices(app *App) {
	var repo resumes.Repo
	if app.DB != nil {
		repo = &resumes.PGRepo{DB: app.DB}
	} else {
		repo = resumes.NewMemoryRepo()
	}

	svc := &resumes.Service{
		Repo:           repo,
		Store:          app.Store,
		Extractor:      llm.NewExtractor(app.Provider),
		ProcessTimeout: app.Config.ProcessTimeout,
	}
	if app.Queue != nil {
		svc.Dispatcher = &resumes.QueueDispatcher{Queue: app.Queue}
	}

	var gate debounce.Gate
	if app.Redis != nil {
		gate = debounce.NewRedisGate(app.Redis, app.Config.EditDebounce)
	} else {
		gate = debounce.NewMemoryGate(app.Config.EditDebounce, nil)
	}

	checks := map[string]health.Check{}
	if app.DB != nil {
		checks["database"] = app.DB.PingContext
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }
	}

	app.ResumesRepo = repo
	app.ResumeService = svc
	app.ResumeHandler = resumes.NewHandler(svc, gate, app.Config.MaxUploadBytes())
	app.Sweeper = resumes.NewSweeper(svc, app.Config.StuckAfter, app.Config.SweepInterval)
	app.Health = health.NewService(checks)
}
