package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/db"
	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/middleware"
	"github.com/yungbote/streamvault-backend/internal/observability"
	"github.com/yungbote/streamvault-backend/internal/server"
	"github.com/yungbote/streamvault-backend/internal/vault"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Vaults   *vault.Registry
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	vaults := vault.NewRegistry()

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, rdb, vaults)

	if err := serviceset.Access.Bootstrap(context.Background(), cfg.BootstrapAdmin); err != nil {
		log.Sync()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	metrics := observability.Init(log)
	handlerset := wireHandlers(serviceset, metrics)
	authMiddleware := middleware.NewAuthMiddleware(log, cfg.JWTSecretKey)

	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:   authMiddleware,
		AgreementHandler: handlerset.Agreement,
		ProposalHandler:  handlerset.Proposal,
		AdminHandler:     handlerset.Admin,
		Metrics:          metrics,
		MetricsEnabled:   observability.Enabled(),
		AllowOrigins:     cfg.AllowOrigins,
	})

	a := &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Vaults:   vaults,
	}

	if metrics != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		metrics.StartPGCollector(ctx, log, theDB)
		metrics.StartRedisCollector(ctx, log, rdb)
		metrics.StartAgreementCollector(ctx, log, func(ctx context.Context) (int64, error) {
			return reposet.Agreement.Count(ctx, nil)
		})
	}
	return a, nil
}

func (a *App) Run() error {
	defer a.Close()
	a.Log.Info("Starting server", "port", a.Cfg.Port)
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.Log.Sync()
}
