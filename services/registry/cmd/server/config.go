package main

import (
	"github.com/caarlos0/env/v11"
)

type config struct {
	Port         string `env:"SERVICE_PORT" envDefault:"8085"`
	DatabaseURL  string `env:"DATABASE_URL"`
	AdminAccount string `env:"ADMIN_ACCOUNT" envDefault:"acc_admin"`
	AdminToken   string `env:"ADMIN_TOKEN,required"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

func loadConfig() (config, error) {
	var cfg config
	err := env.Parse(&cfg)
	return cfg, err
}
