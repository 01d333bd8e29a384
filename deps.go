//go:build deps
// +build deps

// This file is used to track dependencies for go mod.
// It is not compiled into the binary.
package veilberry

import (
	_ "github.com/BurntSushi/toml"
	_ "github.com/blockberries/cramberry/pkg/cramberry"
	_ "github.com/cosmos/iavl"
	_ "github.com/cosmos/iavl/db"
	_ "github.com/dgraph-io/badger/v4"
	_ "github.com/hashicorp/golang-lru/v2"
	_ "github.com/prometheus/client_golang/prometheus"
	_ "github.com/spf13/cobra"
	_ "github.com/stretchr/testify/require"
	_ "github.com/syndtr/goleveldb/leveldb"
)
