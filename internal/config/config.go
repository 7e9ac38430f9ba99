package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const EnvPrefix = "LEEKTRACKER"

type Config struct {
	DataDir      string   `mapstructure:"data_dir"`
	FightLogsDir string   `mapstructure:"fight_logs_dir"`
	LogLevel     string   `mapstructure:"log_level"`
	ArenaURL     string   `mapstructure:"arena_url"`
	ArenaToken   string   `mapstructure:"arena_token"`
	ServerPort   string   `mapstructure:"server_port"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("fight_logs_dir", "fight_logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("arena_url", "https://leekwars.com/api")
	v.SetDefault("arena_token", "")
	v.SetDefault("server_port", "8080")
	v.SetDefault("cors_origins", []string{"*"})
}

// Load reads .env, then an optional leektracker.yaml, then LEEKTRACKER_*
// variables. Later sources win.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	v := viper.New()
	defaults(v)
	v.SetConfigName("leektracker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logger.Debug().Msg("leektracker.yaml not found, using environment variables or defaults")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%s_DATA_DIR must not be empty", EnvPrefix)
	}

	logger.Debug().
		Str("data_dir", cfg.DataDir).
		Str("fight_logs_dir", cfg.FightLogsDir).
		Str("arena_url", cfg.ArenaURL).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return cfg, nil
}

var Module = fx.Provide(Load)
