package config

import (
	"fmt"

	"github.com/arnavshah/internship-allocator-go/pkg/allocator"
	"github.com/arnavshah/internship-allocator-go/pkg/fairness"
	"github.com/arnavshah/internship-allocator-go/pkg/scoring"
)

// Config is the main application configuration struct
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig selects postgres when URL is set, sqlite at Path otherwise
type DatabaseConfig struct {
	URL  string `mapstructure:"url"`
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig holds every tunable of the allocation pipeline
type EngineConfig struct {
	Weights scoring.Weights `mapstructure:"weights"`
	Boosts  fairness.Boosts `mapstructure:"boosts"`
	// EligibilityExpression is an optional CEL floor; empty admits every pair
	EligibilityExpression string `mapstructure:"eligibility_expression"`
	// Workers caps scoring parallelism; 0 means one per CPU
	Workers int `mapstructure:"workers"`
	// CheckInterval is how often, in pairs, the commit walk checks for cancellation
	CheckInterval int `mapstructure:"check_interval"`
}

// DefaultEngineConfig returns the documented weights and boosts
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights:       scoring.DefaultWeights(),
		Boosts:        fairness.DefaultBoosts(),
		CheckInterval: allocator.DefaultCheckInterval,
	}
}

// Validate checks the engine tunables
func (e EngineConfig) Validate() error {
	if err := e.Weights.Validate(); err != nil {
		return err
	}
	if err := e.Boosts.Validate(); err != nil {
		return err
	}
	if e.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", e.Workers)
	}
	if e.CheckInterval < 0 {
		return fmt.Errorf("check_interval must be >= 0, got %d", e.CheckInterval)
	}
	return nil
}
