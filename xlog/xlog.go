// Package xlog sets up the process logger. Directly grounded on
// turbo/logging/logging.go: the same library (github.com/ledgerwatch/log/v3),
// the same lumberjack-backed rotating file handler combined with a
// console handler via log.MultiHandler. Both handlers use
// log.TerminalFormatNoColor(); there is no JSON format option. Adapted
// from cli.Context/cobra-sourced parameters to indexerconfig.Config
// fields, since this service takes no CLI flags and is configured by
// environment variables only.
package xlog

import (
	"os"
	"path/filepath"

	"github.com/ledgerwatch/log/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config names the subset of indexerconfig.Config the logger needs,
// kept decoupled from that package so xlog does not import it.
type Config struct {
	Debug      bool
	FilePrefix string
	DirPath    string
}

// Setup builds the root logger: a console handler at Info (or Debug)
// level, plus, when DirPath is set, a rotating file handler fanned in via
// log.MultiHandler exactly as turbo/logging/logging.go combines its two
// handlers.
func Setup(cfg Config) log.Logger {
	logger := log.New()

	level := log.LvlInfo
	if cfg.Debug {
		level = log.LvlDebug
	}

	consoleHandler := log.LvlFilterHandler(level, log.StreamHandler(os.Stderr, log.TerminalFormatNoColor()))

	if cfg.DirPath == "" {
		logger.SetHandler(consoleHandler)
		logger.Info("console logging only")
		return logger
	}

	if err := os.MkdirAll(cfg.DirPath, 0764); err != nil {
		logger.SetHandler(consoleHandler)
		logger.Warn("failed to create log dir, console logging only", "dir", cfg.DirPath, "err", err)
		return logger
	}

	prefix := cfg.FilePrefix
	if prefix == "" {
		prefix = "indexer"
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.DirPath, prefix+".log"),
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	fileHandler := log.LvlFilterHandler(level, log.StreamHandler(rotator, log.TerminalFormatNoColor()))

	logger.SetHandler(log.MultiHandler(consoleHandler, fileHandler))
	logger.Info("logging to file system", "dir", cfg.DirPath, "level", level)
	return logger
}
