package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/config"
	"github.com/minsocial/celiaquia-backend/internal/data/db"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      config.Config
	Catalog  *types.Catalog
	Repos    Repos
	Clients  Clients
	Services Services
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "dev"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := config.Load(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.Migrate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	ctx := context.Background()
	catalog, err := reposet.Reference.LoadCatalog(ctx, nil)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load reference catalog: %w", err)
	}

	for provinceID, quota := range cfg.Programa.CupoSeed {
		if err := reposet.Cupo.UpsertConfig(ctx, nil, provinceID, quota); err != nil {
			log.Sync()
			return nil, fmt.Errorf("seed cupo for province %d: %w", provinceID, err)
		}
	}

	clientset, err := wireClients(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	serviceset := wireServices(theDB, log, cfg, catalog, reposet, clientset)

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Catalog:  catalog,
		Repos:    reposet,
		Clients:  clientset,
		Services: serviceset,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Clients.Audit != nil {
		_ = a.Clients.Audit.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
