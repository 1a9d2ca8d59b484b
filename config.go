package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	modeWrite = "write"
	modeRead  = "read"

	uiLine   = "line"
	uiScreen = "screen"
)

var cfgFileName = "f3.toml"

func defCfgFilePaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "f3"))
	}
	return paths
}

// config is the resolved setting of one run.
type config struct {
	Mode           string
	Dir            string
	StartAt        int64
	EndAt          int64
	ShowProgress   bool
	MaxRate        int64 // KiB/s, 0 = unlimited
	ReadSingleFile bool
	UI             string
	LogLevel       string
	LogFile        string
	MetricsFile    string
	RunID          string
}

// loadConfig reads an explicit config file, or the first f3.toml found in
// the default locations. A missing default file is not an error.
func loadConfig(v *viper.Viper, explicit string) error {
	v.SetEnvPrefix("F3")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("load config %s: %w", explicit, err)
		}
		return nil
	}
	for _, dir := range defCfgFilePaths() {
		fpath := filepath.Join(dir, cfgFileName)
		if fi, err := os.Stat(fpath); err != nil || fi.IsDir() {
			continue
		}
		v.SetConfigFile(fpath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("load config %s: %w", fpath, err)
		}
		return nil
	}
	return nil
}

func configFromViper(v *viper.Viper, mode string, args []string) (*config, error) {
	c := &config{
		Mode:         mode,
		StartAt:      v.GetInt64("start-at"),
		EndAt:        v.GetInt64("end-at"),
		ShowProgress: v.GetBool("show-progress"),
		UI:           strings.ToLower(v.GetString("ui")),
		LogLevel:     v.GetString("log.level"),
		LogFile:      v.GetString("log.file"),
		MetricsFile:  v.GetString("metrics-file"),
		RunID:        uuid.NewString(),
	}
	if len(args) > 0 {
		c.Dir = args[0]
	}
	switch mode {
	case modeWrite:
		c.MaxRate = v.GetInt64("max-write-rate")
	case modeRead:
		c.MaxRate = v.GetInt64("max-read-rate")
		c.ReadSingleFile = v.GetBool("read-single-file") || strings.HasSuffix(c.Dir, h2wExt)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.ReadSingleFile {
		dir, n, err := parseDevAndNum(c.Dir)
		if err != nil {
			return nil, err
		}
		c.Dir, c.StartAt, c.EndAt = dir, n, n
	}
	return c, nil
}

func (c *config) validate() error {
	switch {
	case c.Dir == "":
		return errors.New("device path must be specified")
	case c.StartAt < 1 && !c.ReadSingleFile:
		return errors.New("start-at must be greater than or equal to 1")
	case c.EndAt != 0 && c.EndAt < c.StartAt:
		return errors.New("end-at must be greater than or equal to start-at, or zero")
	case c.MaxRate < 0:
		return fmt.Errorf("max %s rate must be non-negative", c.Mode)
	case c.UI != uiLine && c.UI != uiScreen:
		return fmt.Errorf("unknown --ui %q", c.UI)
	}
	return nil
}

// newLogger builds the diagnostics logger. Every entry carries the run id.
func newLogger(c *config) (*zap.Logger, error) {
	if c.UI == uiScreen && c.LogFile == "" {
		// stderr belongs to the screen
		return zap.NewNop(), nil
	}
	lvl, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if c.LogFile != "" {
		zc.OutputPaths = []string{c.LogFile}
		zc.ErrorOutputPaths = []string{c.LogFile}
	}
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("run", c.RunID), zap.String("mode", c.Mode)), nil
}
