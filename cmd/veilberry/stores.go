package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/blockberries/veilberry/config"
	"github.com/blockberries/veilberry/logging"
	"github.com/blockberries/veilberry/mappingstore"
	"github.com/blockberries/veilberry/recordstore"
)

// openRecordStore opens the configured record store backend.
func openRecordStore(cfg config.RecordStoreConfig) (recordstore.Store, error) {
	switch cfg.Backend {
	case "leveldb":
		return recordstore.NewLevelDBStore(cfg.Path, cfg.CacheSize)
	case "badgerdb":
		return recordstore.NewBadgerDBStore(cfg.Path)
	case "memory":
		return recordstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown record store backend: %s", cfg.Backend)
	}
}

// openMappingStore opens the configured mapping store backend.
func openMappingStore(cfg config.MappingStoreConfig) (mappingstore.Store, error) {
	switch cfg.Backend {
	case "iavl":
		return mappingstore.NewIAVLStore(cfg.Path, cfg.CacheSize)
	case "memory":
		return mappingstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown mapping store backend: %s", cfg.Backend)
	}
}

// createLogger creates a logger based on configuration.
func createLogger(cfg config.LoggingConfig) *logging.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	var w = os.Stderr
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return logging.NewJSONLogger(w, level)
	default:
		return logging.NewTextLogger(w, level)
	}
}
