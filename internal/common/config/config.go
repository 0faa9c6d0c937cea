package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Storage struct {
		// Backend selects the persistence backend: "file" or "redis".
		Backend string `env:"STORAGE_BACKEND" envDefault:"file"`
		Path    string `env:"STORAGE_PATH" envDefault:"giveaways.json"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Gateway struct {
		BaseURL string `env:"GATEWAY_BASE_URL" envDefault:"http://localhost:8081"`
		Token   string `env:"GATEWAY_TOKEN" envDefault:""`
	}

	Giveaway struct {
		Reaction            string        `env:"GIVEAWAY_REACTION" envDefault:"🎉"`
		BotsCanWin          bool          `env:"GIVEAWAY_BOTS_CAN_WIN" envDefault:"false"`
		EmbedColor          string        `env:"GIVEAWAY_EMBED_COLOR" envDefault:"#FF0000"`
		EmbedColorEnd       string        `env:"GIVEAWAY_EMBED_COLOR_END" envDefault:"#000000"`
		CountdownInterval   time.Duration `env:"GIVEAWAY_COUNTDOWN_INTERVAL" envDefault:"10s"`
		RequirementInterval time.Duration `env:"GIVEAWAY_REQUIREMENT_INTERVAL" envDefault:"8m"`
	}
}

func Load() *Config {
	// Missing .env is fine, variables may be set directly in the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
