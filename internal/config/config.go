package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ksred/nrm-api/internal/types"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Auth      AuthConfig        `mapstructure:"auth"`
	Batch     BatchConfig       `mapstructure:"batch"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	Locations map[string]string `mapstructure:"locations"` // location ID -> region name
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// BatchConfig holds batch runner configuration
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from file and environment variables. A
// missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("NRM_API")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// SetConfigFile bypasses viper's search-path machinery, so a missing
	// file surfaces as a plain path error rather than
	// ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.path", "nrm.db")
	v.SetDefault("auth.jwt_secret", "nrm-secret-key")
	v.SetDefault("auth.api_key", "test-api-key")
	v.SetDefault("auth.api_secret", "test-api-secret")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("logging.level", "info")
	v.SetDefault("locations", defaultLocations())
}

// defaultLocations is a small built-in grid exit point mapping, enough
// to run the simulation without an external location table.
func defaultLocations() map[string]string {
	return map[string]string{
		"OTA2201": string(types.RegionNorthIsland),
		"WKM2201": string(types.RegionNorthIsland),
		"HLY2201": string(types.RegionNorthIsland),
		"HAY2201": string(types.RegionNorthIsland),
		"BEN2201": string(types.RegionSouthIsland),
		"ISL2201": string(types.RegionSouthIsland),
		"MAN2201": string(types.RegionSouthIsland),
		"TWI2201": string(types.RegionSouthIsland),
	}
}

func (c *Config) validate() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	for location, region := range c.Locations {
		switch types.Region(region) {
		case types.RegionNorthIsland, types.RegionSouthIsland:
		default:
			return fmt.Errorf("location %q maps to unknown region %q", location, region)
		}
	}
	return nil
}

// RegionMap converts the configured location table into the typed
// mapping consumed by the offer normalizer. Viper lowercases map keys
// read from a config file, so location IDs are canonicalized back to
// upper case; grid exit point IDs are upper case by convention.
func (c *Config) RegionMap() map[string]types.Region {
	regions := make(map[string]types.Region, len(c.Locations))
	for location, region := range c.Locations {
		regions[strings.ToUpper(location)] = types.Region(region)
	}
	return regions
}
