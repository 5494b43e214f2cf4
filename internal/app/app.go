package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/slidehub/ai-service/internal/config"
	"github.com/slidehub/ai-service/internal/database"
	"github.com/slidehub/ai-service/internal/middleware"
	"github.com/slidehub/ai-service/internal/modules/processing/analysis"
	"github.com/slidehub/ai-service/internal/modules/processing/deploy"
	"github.com/slidehub/ai-service/internal/modules/processing/llm"
	"github.com/slidehub/ai-service/internal/modules/processing/notes"
	pkgcron "github.com/slidehub/ai-service/internal/pkg/cron"
	"github.com/slidehub/ai-service/internal/pkg/imagefetch"
	pkgredis "github.com/slidehub/ai-service/internal/pkg/redis"
	"github.com/slidehub/ai-service/internal/pkg/taskqueue"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchDrainTimeout = 10 * time.Second

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	db    *gorm.DB
	mongo *mongo.Client
	redis *pkgredis.Client
	tasks *taskqueue.Service

	analysis *analysis.Service
	notes    *notes.Service
	deploy   *deploy.Service
}

// New initializes the application: storage → Redis → providers → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	a := &App{cfg: cfg, logger: logger}

	st, err := a.openStorage(context.Background())
	if err != nil {
		a.closeStores()
		return nil, err
	}

	if cfg.Redis.Enable {
		rc, err := pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = rc
		a.tasks = taskqueue.NewService(rc)
	} else {
		logger.Info("redis disabled, background tasks and rate limiting are off")
	}

	if err := a.buildServices(st); err != nil {
		a.closeStores()
		return nil, err
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.sched = pkgcron.New(logger)
	if a.tasks != nil {
		registerCronJobs(a.sched, a.tasks, logger)
		a.sched.Start(ctx)
	}

	a.router = newRouter(cfg, logger)
	a.registerRoutes()

	return a, nil
}

func (a *App) buildServices(st stores) error {
	cfg := a.cfg
	httpClient := &http.Client{}

	visionGen, err := llm.NewGenerator(cfg.AI.Vision, httpClient)
	if err != nil {
		return fmt.Errorf("vision provider: %w", err)
	}
	textGen, err := llm.NewGenerator(cfg.AI.Text, httpClient)
	if err != nil {
		return fmt.Errorf("text provider: %w", err)
	}
	vision := llm.NewClient(cfg.AI.Vision.Type, visionGen, a.logger,
		llm.WithTimeout(cfg.AI.Vision.Timeout), llm.WithLanguage(cfg.AI.Language))
	text := llm.NewClient(cfg.AI.Text.Type, textGen, a.logger,
		llm.WithTimeout(cfg.AI.Text.Timeout), llm.WithLanguage(cfg.AI.Language))

	images, err := imagefetch.New(cfg.ImageFetch, &http.Client{Timeout: cfg.ImageFetch.Timeout})
	if err != nil {
		return fmt.Errorf("image fetch: %w", err)
	}

	a.analysis = analysis.NewService(vision, st.analyses, a.logger)
	noteOpts := []notes.Option{
		notes.WithLanguage(cfg.AI.Language),
		notes.WithBatchDelay(cfg.AI.BatchDelay),
	}
	if a.tasks != nil {
		noteOpts = append(noteOpts, notes.WithTaskQueue(a.tasks))
	}
	a.notes = notes.NewService(vision, text, images, st.notes, a.logger, noteOpts...)
	a.deploy = deploy.NewService(a.analysis, text, st.guides, a.logger)
	return nil
}

func newRouter(cfg *config.AppConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader, middleware.IdempotenceHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))
	return router
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs, cancels running batches so they record
// their final status, and closes storage connections.
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
		a.sched.Wait()
	}
	if a.notes != nil {
		ctx, cancel := context.WithTimeout(context.Background(), batchDrainTimeout)
		if err := a.notes.Shutdown(ctx); err != nil {
			a.logger.Warn("background batches did not stop in time", zap.Error(err))
		}
		cancel()
	}
	a.closeStores()
}

func (a *App) closeStores() {
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
		a.db = nil
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("close mongo", zap.Error(err))
		}
		a.mongo = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
		a.redis = nil
	}
}
