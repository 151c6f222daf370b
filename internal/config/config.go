package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the system-wide settings coordinator
type Config struct {
	Socket   *SocketConfig   `json:"socket"`
	Sweeper  *SweeperConfig  `json:"sweeper"`
	HTTP     *HTTPConfig     `json:"http"`
	Database *DatabaseConfig `json:"database"`
}

// SocketConfig locates the unix domain socket the broker listens on
type SocketConfig struct {
	Path string `json:"path"`
}

// SweeperConfig controls the background expiry sweep
type SweeperConfig struct {
	Interval time.Duration `json:"interval"`
}

// HTTPConfig configures the local UI-facing HTTP server
type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DatabaseConfig locates the sqlite resolution log
type DatabaseConfig struct {
	Path string `json:"path"`
}

// DefaultConfig returns production defaults: socket under the user's home
// runtime directory, HTTP bound to loopback for the local UI
func DefaultConfig() *Config {
	return &Config{
		Socket: &SocketConfig{
			Path: defaultSocketPath(),
		},
		Sweeper: &SweeperConfig{
			Interval: 5 * time.Second,
		},
		HTTP: &HTTPConfig{
			Host:         "127.0.0.1",
			Port:         8787,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: &DatabaseConfig{
			Path: "./askrelay.db",
		},
	}
}

func defaultSocketPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./ask.sock"
	}
	return filepath.Join(home, ".askrelay", "runtime", "ask.sock")
}

// Validate prevents invalid system configurations from reaching components
func (c *Config) Validate() error {
	if c.Socket == nil {
		return fmt.Errorf("socket configuration is required")
	}

	if c.Socket.Path == "" {
		return fmt.Errorf("socket path cannot be empty")
	}

	if c.Sweeper == nil {
		return fmt.Errorf("sweeper configuration is required")
	}

	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweeper interval must be positive")
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}

	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}

	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}

	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}

	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	return nil
}

// LoadFromEnv returns defaults overridden by ASKRELAY_* environment variables
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if socketPath := os.Getenv("ASKRELAY_SOCKET_PATH"); socketPath != "" {
		config.Socket.Path = socketPath
	}

	if interval := os.Getenv("ASKRELAY_SWEEP_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.Sweeper.Interval = parsed
		}
	}

	if host := os.Getenv("ASKRELAY_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}

	if port := os.Getenv("ASKRELAY_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}

	if readTimeout := os.Getenv("ASKRELAY_HTTP_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.HTTP.ReadTimeout = timeout
		}
	}

	if writeTimeout := os.Getenv("ASKRELAY_HTTP_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.HTTP.WriteTimeout = timeout
		}
	}

	if dbPath := os.Getenv("ASKRELAY_DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	return config
}

// ConfigFile represents the JSON structure for file-based configuration.
// Durations are strings so config files stay human-editable.
type ConfigFile struct {
	Socket   *SocketConfigFile   `json:"socket"`
	Sweeper  *SweeperConfigFile  `json:"sweeper"`
	HTTP     *HTTPConfigFile     `json:"http"`
	Database *DatabaseConfigFile `json:"database"`
}

type SocketConfigFile struct {
	Path string `json:"path"`
}

type SweeperConfigFile struct {
	Interval string `json:"interval"`
}

type HTTPConfigFile struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type DatabaseConfigFile struct {
	Path string `json:"path"`
}

// LoadFromFile reads a JSON config file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()

	if configFile.Socket != nil && configFile.Socket.Path != "" {
		config.Socket.Path = configFile.Socket.Path
	}

	if configFile.Sweeper != nil && configFile.Sweeper.Interval != "" {
		if interval, err := time.ParseDuration(configFile.Sweeper.Interval); err == nil {
			config.Sweeper.Interval = interval
		}
	}

	if configFile.HTTP != nil {
		if configFile.HTTP.Host != "" {
			config.HTTP.Host = configFile.HTTP.Host
		}
		if configFile.HTTP.Port > 0 {
			config.HTTP.Port = configFile.HTTP.Port
		}
		if configFile.HTTP.ReadTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.HTTP.ReadTimeout); err == nil {
				config.HTTP.ReadTimeout = timeout
			}
		}
		if configFile.HTTP.WriteTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.HTTP.WriteTimeout); err == nil {
				config.HTTP.WriteTimeout = timeout
			}
		}
	}

	if configFile.Database != nil && configFile.Database.Path != "" {
		config.Database.Path = configFile.Database.Path
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return config, nil
}

// LoadConfigWithPrecedence resolves configuration as file > environment >
// defaults, silently falling back when the file is absent or invalid
func LoadConfigWithPrecedence(path string) *Config {
	config := LoadFromEnv()

	if path != "" {
		if fileConfig, err := LoadFromFile(path); err == nil {
			config = fileConfig
		}
	}

	return config
}
