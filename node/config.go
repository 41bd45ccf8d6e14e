// Package node wires every QNet subsystem — storage, the transaction
// executor, consensus, the mempool, the reward ledger, the activation
// registry, the cross-shard coordinator, the archive replication manager
// and the JSON-RPC server — into a single running process, the way the
// teacher's node.Node and ServiceContext assemble registered Services
// around a shared config and database.
package node

import (
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"

	"github.com/qnet-project/qnet-core/log"
	"github.com/qnet-project/qnet-core/storage"
	"github.com/qnet-project/qnet-core/storage/database"
)

var logger = log.NewModuleLogger(log.Node)

// tomlSettings mirrors the teacher's cmd/ranger/config.go: TOML keys use
// the same names as the Go struct fields, with a descriptive error when a
// config file names a field the current binary doesn't have.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config is QNet-node's full runtime configuration: storage location,
// network identity, and every subsystem's tunables. Fields are toml-tagged
// so a deployment ships one qnet-node.toml instead of a wall of flags.
type Config struct {
	DataDir     string `toml:",omitempty"`
	DBType      string `toml:",omitempty"` // "leveldb", "badger", or "memory"
	Partitioned bool   `toml:",omitempty"`

	NetworkID uint64 `toml:",omitempty"`
	ShardID   int    `toml:",omitempty"`
	ShardCount int   `toml:",omitempty"`

	HTTPHost string `toml:",omitempty"`
	HTTPPort int    `toml:",omitempty"`

	NodeType  string `toml:",omitempty"` // "light", "full", "super"
	NodeKeyHex string `toml:",omitempty"`

	MempoolMaxPerAccount int `toml:",omitempty"`
	MempoolMaxGlobal     int `toml:",omitempty"`

	RewardExpectedNodes int `toml:",omitempty"`

	ActivationNetworkSize int    `toml:",omitempty"`
	ActivationRedisAddr   string `toml:",omitempty"`

	// ArchiveMySQLDSN enables the archive replication manager when set; an
	// empty value leaves archival disabled for light/dev deployments.
	ArchiveMySQLDSN  string `toml:",omitempty"`
	ArchiveS3Bucket  string `toml:",omitempty"`
	ArchiveS3Region  string `toml:",omitempty"`

	QuorumSize int `toml:",omitempty"`
}

// DefaultConfig mirrors the teacher's node.DefaultConfig: reasonable
// settings for a single local node with no config file at all.
var DefaultConfig = Config{
	DBType:               "leveldb",
	HTTPHost:             "localhost",
	HTTPPort:              8645,
	NodeType:             "full",
	MempoolMaxPerAccount: 64,
	MempoolMaxGlobal:     50_000,
	RewardExpectedNodes:  10_000,
	ActivationNetworkSize: 10_000,
	QuorumSize:           5,
}

// LoadConfig decodes a TOML file over cfg, so fields the file omits keep
// whatever cfg already holds (callers pass a copy of DefaultConfig to get
// its defaults) — the same load path as the teacher's
// cmd/ranger/config.go loadConfig, minus the ranger-specific Gxp section.
func LoadConfig(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := tomlSettings.NewDecoder(bufio.NewReader(f))
	if err := dec.Decode(cfg); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			return fmt.Errorf("%s, %w", path, err)
		}
		return err
	}
	return nil
}

// storageConfig maps the config's string DBType to storage.Config's typed
// constant, defaulting to LevelDB for anything unrecognized.
func (c *Config) storageConfig() storage.Config {
	var dbType database.DBType
	switch c.DBType {
	case "badger":
		dbType = database.BadgerDBType
	case "memory":
		dbType = database.MemoryDB
	default:
		dbType = database.LevelDB
	}
	return storage.Config{
		Dir:              c.DataDir,
		DBType:           dbType,
		Partitioned:      c.Partitioned,
		LevelDBCacheSize: 256,
		LevelDBHandles:   256,
	}
}
