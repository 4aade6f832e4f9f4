// Config loading for the annopack CLI.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/annopack/internal/paths"
	"github.com/mesh-intelligence/annopack/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// Config keys; they match the mapstructure tags of types.Config.
	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeySyncStrategy = "sync_strategy"
	cfgKeyLogLevel     = "log_level"
	cfgKeyLogFormat    = "log_format"

	envLogLevel = "ANNOPACK_LOG_LEVEL"
)

// defaultConfig is the configuration used for keys missing from config.yaml.
func defaultConfig() types.Config {
	return types.Config{
		Backend:      types.BackendSQLite,
		SyncStrategy: types.SyncImmediate,
		LogLevel:     types.LogLevelWarn,
		LogFormat:    types.LogFormatText,
	}
}

// loadConfig reads config.yaml from configDir using Viper. A missing
// config.yaml is not an error; defaults apply. ANNOPACK_LOG_LEVEL
// overrides log_level.
func loadConfig(configDir string) (types.Config, error) {
	def := defaultConfig()

	v := viper.New()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeySyncStrategy, def.SyncStrategy)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyLogFormat, def.LogFormat)
	if err := v.BindEnv(cfgKeyLogLevel, envLogLevel); err != nil {
		return types.Config{}, fmt.Errorf("bind env: %w", err)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml in configDir with default values
// and the given data directory. An existing file is left untouched.
// Reports whether the file was written.
func writeConfigIfMissing(configDir, dataDir string) (bool, error) {
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	cfg := defaultConfig()
	cfg.DataDir = dataDir
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# annopack configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
