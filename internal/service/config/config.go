package config

import (
	"context"
	"flag"
	"log/slog"

	"github.com/caarlos0/env/v6"

	"github.com/insurezeal/backoffice/internal/model"
)

type Config struct {
	RunAddr            string `env:"RUN_ADDRESS"   envDefault:"localhost:8080"`
	DatabaseURI        string `env:"DATABASE_URI"   envDefault:""`
	LedgerAddr         string `env:"LEDGER_SYSTEM_ADDRESS"   envDefault:"localhost:8081"`
	RedisAddr          string `env:"REDIS_ADDRESS"  envDefault:""`
	LogLevel           string `env:"LOG_LEVEL"      envDefault:"info"`
	LookupRequestLimit uint64 `env:"LOOKUP_REQUEST_LIMIT" envDefault:"100500"`
}

type Builder struct {
	cfg *Config
	log *slog.Logger
}

func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{
		cfg: &Config{
			RunAddr:            "",
			DatabaseURI:        "",
			LedgerAddr:         "",
			RedisAddr:          "",
			LogLevel:           "",
			LookupRequestLimit: 0,
		},
		log: log,
	}
}

func (b *Builder) FromEnv() *Builder {
	if err := env.Parse(b.cfg); err != nil {
		b.log.LogAttrs(context.Background(),
			slog.LevelError, "Failed to parse config", slog.Any(model.KeyLoggerError, err))
	}
	return b
}

func (b *Builder) FromFlags() *Builder {
	flag.StringVar(&b.cfg.RunAddr, "a", b.cfg.RunAddr, "Run address")
	flag.StringVar(&b.cfg.DatabaseURI, "d", b.cfg.DatabaseURI, "Database URI")
	flag.StringVar(&b.cfg.LedgerAddr, "r", b.cfg.LedgerAddr, "Ledger address")
	flag.StringVar(&b.cfg.RedisAddr, "c", b.cfg.RedisAddr, "Redis cache address")
	flag.StringVar(&b.cfg.LogLevel, "l", b.cfg.LogLevel, "Log level")
	flag.Uint64Var(&b.cfg.LookupRequestLimit, "n", b.cfg.LookupRequestLimit, "Ledger request limit")

	flag.Parse()
	return b
}

func (b *Builder) GetConfig() *Config {
	return b.cfg
}
