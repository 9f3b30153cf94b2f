package app

import (
	"github.com/minsocial/celiaquia-backend/internal/clients/audit"
	"github.com/minsocial/celiaquia-backend/internal/clients/renaper"
	"github.com/minsocial/celiaquia-backend/internal/config"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

type Clients struct {
	Renaper renaper.Client
	Audit   audit.Sink
}

func wireClients(cfg config.Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	var sink audit.Sink = audit.NewNopSink()
	if cfg.RedisAddr != "" {
		s, err := audit.NewRedisSink(cfg.RedisAddr, "audit", log)
		if err != nil {
			return Clients{}, err
		}
		sink = s
	} else {
		log.Warn("REDIS_ADDR unset, audit events are dropped")
	}

	var identity renaper.Client
	if cfg.Renaper.BaseURL != "" {
		c, err := renaper.NewClient(cfg.Renaper, log)
		if err != nil {
			return Clients{}, err
		}
		identity = c
	} else {
		log.Warn("RENAPER_BASE_URL unset, identity validation disabled")
	}

	return Clients{Renaper: identity, Audit: sink}, nil
}
