package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		LogLevel         int      `env:"LOG_LEVEL,default=2"`
		DotPath          string   `env:"DOT_PATH,default=~/.wardenbot"`
		EnabledHandlers  []string `env:"HANDLERS,default=moderation,appeals"`
		Moderation       Moderation
	}

	Moderation struct {
		WarnThreshold       int           `env:"WARN_THRESHOLD,default=3"`
		AllowAppeals        bool          `env:"ALLOW_APPEALS,default=true"`
		AppealCooldown      time.Duration `env:"APPEAL_COOLDOWN,default=0h"`
		HistoryPageSize     int           `env:"HISTORY_PAGE_SIZE,default=15"`
		LogChannelID        int64         `env:"LOG_CHANNEL_ID"`
		RecoveryConcurrency int           `env:"RECOVERY_CONCURRENCY,default=4"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("WARDEN_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		dotPath, err := homedir.Expand(cfg.DotPath)
		if err != nil {
			globalErr = fmt.Errorf("expand dot path: %w", err)
			return
		}
		cfg.DotPath = dotPath
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
