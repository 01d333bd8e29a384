package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blockberries/veilberry/config"
)

var (
	initDataDir        string
	initRecordBackend  string
	initMappingBackend string
	initOverride       bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new ledger",
	Long: `Initialize a new Veilberry ledger with a configuration file.

This command creates:
  - config.toml: Ledger configuration
  - data/: Data directory for records and mapping state

Example:
  veilberry init --data-dir ~/.veilberry`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "directory for configuration and data")
	initCmd.Flags().StringVar(&initRecordBackend, "record-backend", "leveldb", "record store backend (leveldb, badgerdb, memory)")
	initCmd.Flags().StringVar(&initMappingBackend, "mapping-backend", "iavl", "mapping store backend (iavl, memory)")
	initCmd.Flags().BoolVar(&initOverride, "force", false, "override existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := initDataDir
	if dataDir == "" {
		dataDir = "."
	}

	configPath := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !initOverride {
		return fmt.Errorf("config.toml already exists; use --force to override")
	}

	cfg := config.DefaultConfig()
	cfg.RecordStore.Backend = initRecordBackend
	cfg.RecordStore.Path = filepath.Join(dataDir, "data", "records")
	cfg.MappingStore.Backend = initMappingBackend
	cfg.MappingStore.Path = filepath.Join(dataDir, "data", "mappings")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dataDir, err)
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}

	if err := config.WriteConfigFile(configPath, cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("Initialized Veilberry ledger\n")
	fmt.Printf("  Record store:  %s\n", cfg.RecordStore.Backend)
	fmt.Printf("  Mapping store: %s\n", cfg.MappingStore.Backend)
	fmt.Printf("  Config:        %s\n", configPath)
	fmt.Printf("  Data dir:      %s\n", filepath.Join(dataDir, "data"))

	return nil
}
