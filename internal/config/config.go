package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
	"github.com/minsocial/celiaquia-backend/internal/utils"
)

// Programa holds the programme parameters that are policy, not code: the
// minimum caregiver adult age and the per-province cupo seed. Loaded from
// YAML, overridable via env.
type Programa struct {
	MinCaregiverAge int          `yaml:"min_caregiver_age"`
	CupoSeed        map[uint]int `yaml:"cupo_seed"`
}

// Renaper holds the outbound identity-service settings.
type Renaper struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	// TokenMargin is subtracted from the reported expiration before a cached
	// bearer is considered stale.
	TokenMargin time.Duration
}

type Config struct {
	LogMode   string
	RedisAddr string
	Programa  Programa
	Renaper   Renaper
}

func Load(log *logger.Logger) (Config, error) {
	cfg := Config{
		LogMode:   utils.GetEnv("LOG_MODE", "dev", log),
		RedisAddr: utils.GetEnv("REDIS_ADDR", "", log),
		Programa: Programa{
			MinCaregiverAge: 14,
		},
		Renaper: Renaper{
			BaseURL:     utils.GetEnv("RENAPER_BASE_URL", "", log),
			Username:    utils.GetEnv("RENAPER_USERNAME", "", log),
			Password:    utils.GetEnv("RENAPER_PASSWORD", "", log),
			Timeout:     time.Duration(utils.GetEnvAsInt("RENAPER_TIMEOUT_SECONDS", 10, log)) * time.Second,
			TokenMargin: time.Duration(utils.GetEnvAsInt("RENAPER_TOKEN_MARGIN_SECONDS", 60, log)) * time.Second,
		},
	}

	if path := utils.GetEnv("PROGRAMA_CONFIG_PATH", "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read programa config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg.Programa); err != nil {
			return cfg, fmt.Errorf("parse programa config: %w", err)
		}
	}

	// Env wins over file defaults.
	if v := utils.GetEnvAsInt("MIN_CAREGIVER_AGE", 0, log); v > 0 {
		cfg.Programa.MinCaregiverAge = v
	}
	return cfg, nil
}
