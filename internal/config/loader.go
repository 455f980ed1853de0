package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix  = "RELAY"
	envDirVar  = envPrefix + "_CONFIG_DIR"
	configFile = "config.yaml"
)

// Load resolves the relay configuration and the file it came from.
// Later sources win: defaults, the YAML file, then RELAY_* environment variables.
// A missing file is created with the defaults so operators have something to edit.
func Load(logger *zerolog.Logger, path string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg := Default()
	path = locate(path)

	v := newViper(cfg)
	v.SetConfigFile(path)

	err := v.ReadInConfig()
	switch {
	case err == nil:
		logger.Debug().Str("path", path).Msg("config file loaded")
	case errors.Is(err, fs.ErrNotExist):
		if err := seed(path, cfg); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("config file missing, using defaults")
		} else {
			logger.Info().Str("path", path).Msg("wrote default config")
		}
	default:
		return cfg, path, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// newViper registers every key with its default so env overrides apply even
// when the file omits the key.
func newViper(def Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, val := range map[string]any{
		"addr":                def.Addr,
		"read_header_timeout": def.ReadHeaderTimeout,
		"shutdown_timeout":    def.ShutdownTimeout,
		"log_level":           def.LogLevel,
		"log_file":            def.LogFile,
		"allowed_origins":     def.AllowedOrigins,
		"read_limit":          def.ReadLimit,
		"send_buffer":         def.SendBuffer,
		"metrics_enabled":     def.MetricsEnabled,
	} {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// locate picks the config path: explicit, then $RELAY_CONFIG_DIR, then the working directory.
func locate(path string) string {
	if path != "" {
		return path
	}
	if dir := os.Getenv(envDirVar); dir != "" {
		return filepath.Join(dir, configFile)
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, configFile)
	}
	return configFile
}

func seed(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
