package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env           string     `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath   string     `yaml:"storage_path" env:"POSTGRES_URL" env-required:"true"`
	HTTP          HTTPConfig `yaml:"http"`
	Auth          AuthConfig `yaml:"auth"`
	ClientOrigins []string   `yaml:"client_origins" env:"CLIENT_ORIGINS" env-separator:"," env-default:"http://localhost:5173"`
}

type HTTPConfig struct {
	Port int `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret" env:"TOKEN_SECRET" env-required:"true"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"168h"`
}

func Load(path string) *Config {
	var config Config
	err := cleanenv.ReadConfig(path, &config)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &config
}
