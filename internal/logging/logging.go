package logging

import "go.uber.org/zap"

// New returns a development logger for "debug" and a production logger at the
// requested level otherwise. Unknown levels fall back to info.
func New(level string) (*zap.Logger, error) {
    if level == "debug" {
        return zap.NewDevelopment()
    }
    cfg := zap.NewProductionConfig()
    lvl := zap.NewAtomicLevel()
    if err := lvl.UnmarshalText([]byte(level)); err != nil {
        lvl.SetLevel(zap.InfoLevel)
    }
    cfg.Level = lvl
    return cfg.Build()
}
