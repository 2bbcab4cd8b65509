package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads .env, then configs/config.yaml (if any), then environment
// overrides such as ENGINE_BOOSTS_SC or SERVER_PORT.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	return build(v)
}

// LoadFile reads configuration from an explicit file plus environment overrides
func LoadFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// legacy variable names from the scheduler deployment
	_ = v.BindEnv("server.port", "PORT", "SERVER_PORT")
	_ = v.BindEnv("server.mode", "GIN_MODE", "SERVER_MODE")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("database.path", "DATA_PATH", "DATABASE_PATH")
	_ = v.BindEnv("logging.level", "LOG_LEVEL", "LOGGING_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal
func setDefaults(v *viper.Viper) {
	eng := DefaultEngineConfig()

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "allocator_usage.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.weights.skills", eng.Weights.Skills)
	v.SetDefault("engine.weights.location", eng.Weights.Location)
	v.SetDefault("engine.weights.sector", eng.Weights.Sector)
	v.SetDefault("engine.weights.qualifications", eng.Weights.Qualifications)

	v.SetDefault("engine.boosts.sc", eng.Boosts.SC)
	v.SetDefault("engine.boosts.st", eng.Boosts.ST)
	v.SetDefault("engine.boosts.obc", eng.Boosts.OBC)
	v.SetDefault("engine.boosts.ews", eng.Boosts.EWS)
	v.SetDefault("engine.boosts.general", eng.Boosts.General)
	v.SetDefault("engine.boosts.rural", eng.Boosts.Rural)
	v.SetDefault("engine.boosts.past_penalty", eng.Boosts.PastPenalty)
	v.SetDefault("engine.boosts.gender_balance", eng.Boosts.GenderBalance)
	v.SetDefault("engine.boosts.gender_balance_enabled", eng.Boosts.GenderBalanceEnabled)

	v.SetDefault("engine.eligibility_expression", eng.EligibilityExpression)
	v.SetDefault("engine.workers", eng.Workers)
	v.SetDefault("engine.check_interval", eng.CheckInterval)
}

func loadEnvFile() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}
