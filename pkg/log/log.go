// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package log

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GlobalConfig defines the global logger configurations.
type GlobalConfig struct {
	Zap            *zap.Config `json:"zap" yaml:"zap"`
	RedirectStdLog bool        `json:"stdLogRedirect" yaml:"stdLogRedirect"`
}

// ErrReservedName is returned when a sub logger uses a reserved name
var ErrReservedName = errors.New(`"global" is a reserved sub logger name`)

var (
	_globalCfg  GlobalConfig
	_logMu      sync.RWMutex
	_subLoggers = make(map[string]*zap.Logger)
	_levels     = make(map[string]zap.AtomicLevel)
)

func init() {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapCfg.Level.SetLevel(zap.InfoLevel)
	l, err := zapCfg.Build()
	if err != nil {
		log.Println("Failed to init zap global logger, no zap log will be shown till zap is properly initialized: ", err)
		return
	}
	_globalCfg.Zap = &zapCfg
	zap.ReplaceGlobals(l)
}

// L wraps zap.L().
func L() *zap.Logger { return zap.L() }

// S wraps zap.S().
func S() *zap.SugaredLogger { return zap.S() }

// Logger returns logger of the given name. Names without a configured sub logger
// get a named child of the global logger.
func Logger(name string) *zap.Logger {
	_logMu.RLock()
	logger, ok := _subLoggers[name]
	_logMu.RUnlock()
	if !ok {
		return L().Named(name)
	}
	return logger
}

// InitLoggers initializes the global logger and other sub loggers.
func InitLoggers(globalCfg GlobalConfig, subCfgs map[string]GlobalConfig, opts ...zap.Option) error {
	if _, exists := subCfgs["global"]; exists {
		return ErrReservedName
	}
	for name, cfg := range subCfgs {
		logger, level, err := build(cfg, opts...)
		if err != nil {
			return errors.Wrapf(err, "failed to build sub logger %s", name)
		}
		_logMu.Lock()
		_subLoggers[name] = logger.Named(name)
		_levels[name] = level
		_logMu.Unlock()
	}
	logger, level, err := build(globalCfg, opts...)
	if err != nil {
		return errors.Wrap(err, "failed to build global logger")
	}
	_logMu.Lock()
	_levels["global"] = level
	_logMu.Unlock()
	if globalCfg.RedirectStdLog {
		zap.RedirectStdLog(logger)
	}
	zap.ReplaceGlobals(logger)
	_globalCfg = globalCfg
	return nil
}

func build(cfg GlobalConfig, opts ...zap.Option) (*zap.Logger, zap.AtomicLevel, error) {
	if cfg.Zap == nil {
		zapCfg := zap.NewProductionConfig()
		cfg.Zap = &zapCfg
	} else {
		cfg.Zap.EncoderConfig = zap.NewProductionEncoderConfig()
	}
	logger, err := cfg.Zap.Build(opts...)
	return logger, cfg.Zap.Level, err
}

// RegisterLevelConfigMux serves the level of each logger initialized by InitLoggers at /logging/<name>,
// "global" being the global logger
func RegisterLevelConfigMux(root *http.ServeMux) {
	root.HandleFunc("/logging/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/logging/")
		_logMu.RLock()
		level, ok := _levels[name]
		_logMu.RUnlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		level.ServeHTTP(w, r)
	})
}
