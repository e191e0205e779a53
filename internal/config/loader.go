package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "ROOMRELAY"
	envConfigDefaultPath = "ROOMRELAY_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Hosting platforms hand out the listen port and environment name without our prefix.
	_ = v.BindEnv("addr", envPrefix+"_ADDR", "PORT")
	_ = v.BindEnv("environment", envPrefix+"_ENVIRONMENT", "APP_ENV")

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Addr = normalizeAddr(cfg.Addr)

	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("environment", cfg.Environment)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("max_message_bytes", cfg.MaxMessageBytes)
	v.SetDefault("client_queue_size", cfg.ClientQueueSize)
	v.SetDefault("static_dir", cfg.StaticDir)
	v.SetDefault("allowed_origins", cfg.AllowedOrigins)

	v.SetDefault("rooms.history_limit", cfg.Rooms.HistoryLimit)
	v.SetDefault("rooms.empty_grace", cfg.Rooms.EmptyGrace)
	v.SetDefault("rooms.inactive_timeout", cfg.Rooms.InactiveTimeout)
	v.SetDefault("rooms.sweep_interval", cfg.Rooms.SweepInterval)

	v.SetDefault("rate_limit.window", cfg.RateLimit.Window)
	v.SetDefault("rate_limit.max", cfg.RateLimit.Max)

	v.SetDefault("stream.max_chunk_bytes", cfg.Stream.MaxChunkBytes)
	v.SetDefault("stream.queue_size", cfg.Stream.QueueSize)

	v.SetDefault("ice_servers", cfg.ICEServers)
}

// normalizeAddr turns a bare port (as handed out via PORT) into a listen address.
func normalizeAddr(addr string) string {
	if addr == "" || strings.Contains(addr, ":") {
		return addr
	}
	return ":" + addr
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
