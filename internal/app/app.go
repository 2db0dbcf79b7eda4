package app

import (
	"net/http"

	"gorm.io/gorm"

	"lab-catalog-go/internal/config"
	"lab-catalog-go/internal/db"
	"lab-catalog-go/internal/domain/catalog"
	"lab-catalog-go/internal/domain/references"
	"lab-catalog-go/internal/domain/resolution"
	"lab-catalog-go/internal/domain/tariffs"
	"lab-catalog-go/internal/repository/inmemory"
	catalogrepo "lab-catalog-go/internal/repository/postgres/catalog"
	referencesrepo "lab-catalog-go/internal/repository/postgres/references"
	tariffsrepo "lab-catalog-go/internal/repository/postgres/tariffs"
	"lab-catalog-go/internal/transport/httpserver"
	"lab-catalog-go/internal/transport/httpserver/handler"
	"lab-catalog-go/pkg/logger"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
}

func New(log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg := config.Load(log)

	log.Info("app: initializing database")
	dbConn, err := db.NewPostgres(cfg.DB, log)
	if err != nil {
		return nil, err
	}

	log.Info("app: running migrations")
	if err := db.Migrate(dbConn); err != nil {
		return nil, err
	}

	tariffRepo := tariffsrepo.NewPostgres(dbConn)
	referenceRepo := referencesrepo.NewPostgres(dbConn)
	catalogRepo := catalogrepo.NewPostgres(dbConn)

	tariffService := tariffs.NewService(
		tariffRepo,
		referenceCheckerAdapter{repo: referenceRepo},
		legacyExamSourceAdapter{repo: catalogRepo},
	)
	referenceService := references.NewService(referenceRepo, tariffCheckerAdapter{repo: tariffRepo})
	catalogService := catalog.NewService(catalogRepo)
	resolutionService := resolution.NewService(tariffRepo, referenceService, catalogRepo)

	if cfg.TariffCacheTTL > 0 {
		log.Info("app: tariff cache enabled", "ttl", cfg.TariffCacheTTL)
		resolutionService.SetTariffCache(inmemory.NewInMemoryTariffCache(), cfg.TariffCacheTTL)
	}

	log.Info("app: initializing router")
	handlers := handler.New(tariffService, referenceService, catalogService, resolutionService, log)
	router := httpserver.NewRouter(cfg, handlers, referenceService, log)

	srv := httpserver.New(cfg, router)

	return &App{
		cfg:        cfg,
		httpServer: srv,
		db:         dbConn,
	}, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
