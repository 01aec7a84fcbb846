package config

import (
    "errors"
    "io/fs"
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Config holds runtime settings for the server and engine.
type Config struct {
    ServerPort        string        `mapstructure:"SERVER_PORT"`
    LogLevel          string        `mapstructure:"LOG_LEVEL"`
    EngineParallel    bool          `mapstructure:"ENGINE_PARALLEL"`
    EngineSide        string        `mapstructure:"ENGINE_SIDE"`
    HeartbeatInterval time.Duration `mapstructure:"HEARTBEAT_INTERVAL"`
}

var ErrBadEngineSide = errors.New("ENGINE_SIDE must be X or O")

// Setup reads cfgPath if given, then lets environment variables override.
// A missing config file is not an error.
func Setup(cfgPath string) (*Config, error) {
    v := viper.New()
    v.SetDefault("SERVER_PORT", "8080")
    v.SetDefault("LOG_LEVEL", "info")
    v.SetDefault("ENGINE_PARALLEL", true)
    v.SetDefault("ENGINE_SIDE", "O")
    v.SetDefault("HEARTBEAT_INTERVAL", "15s")
    v.AutomaticEnv()

    if cfgPath != "" {
        v.SetConfigFile(cfgPath)
        if err := v.ReadInConfig(); err != nil {
            var notFound viper.ConfigFileNotFoundError
            if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
                return nil, err
            }
        }
    }

    var cfg Config
    if err := v.Unmarshal(&cfg); err != nil {
        return nil, err
    }
    cfg.EngineSide = strings.ToUpper(strings.TrimSpace(cfg.EngineSide))
    if cfg.EngineSide != "X" && cfg.EngineSide != "O" {
        return nil, ErrBadEngineSide
    }
    return &cfg, nil
}
