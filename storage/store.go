// Package storage is QNet's column-family persistent storage layer,
// generalizing the teacher's storage/database package (db_manager.go's
// per-entry-type partitioned LevelDB/BadgerDB split) from EVM chain data
// (headers/bodies/receipts/trie nodes) to QNet's own record set: accounts,
// transactions, microblocks, macroblocks, the reward ledger, the
// activation registry and the archive-replication ledger.
package storage

import (
	"path/filepath"

	"github.com/qnet-project/qnet-core/log"
	"github.com/qnet-project/qnet-core/storage/database"
)

var logger = log.NewModuleLogger(log.Storage)

// ColumnFamily identifies one of QNet's logical record sets, each backed
// by its own Database (Partitioned) or a shared Database under its own
// key prefix (single-database mode), mirroring db_manager.go's
// singleDatabaseDBManager/partitionedDatabaseDBManager split.
type ColumnFamily int

const (
	AccountsCF ColumnFamily = iota
	TransactionsCF
	MicroblocksCF
	MacroblocksCF
	RewardLedgerCF
	ActivationRegistryCF
	CrossShardCF
	ArchiveCF
	MiscCF

	columnFamilyCount
)

var cfDirs = [columnFamilyCount]string{
	"accounts",
	"transactions",
	"microblocks",
	"macroblocks",
	"rewards",
	"activations",
	"xshard",
	"archive",
	"misc",
}

// Config selects the data directory, backend type and partitioning
// (spec.md's domain stack names both LevelDB and BadgerDB backends).
type Config struct {
	Dir             string
	DBType          database.DBType
	Partitioned     bool
	LevelDBCacheSize int
	LevelDBHandles   int
}

// Store is the top-level handle the rest of QNet's packages open column
// families from.
type Store struct {
	cfs         [columnFamilyCount]database.Database
	partitioned bool
}

// Open builds a Store per cfg, partitioning each column family into its
// own backend database when cfg.Partitioned is set, or carving a single
// shared database into prefixed namespaces otherwise — the same choice
// db_manager.go's NewDBManager offers for EVM chain data.
func Open(cfg Config) (*Store, error) {
	s := &Store{partitioned: cfg.Partitioned}

	if !cfg.Partitioned {
		db, err := newBackend(cfg, cfg.Dir)
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(columnFamilyCount); i++ {
			s.cfs[i] = database.NewTable(db, cfDirs[i]+"/")
		}
		return s, nil
	}

	for i := 0; i < int(columnFamilyCount); i++ {
		db, err := newBackend(cfg, filepath.Join(cfg.Dir, cfDirs[i]))
		if err != nil {
			return nil, err
		}
		db.Meter("qnet/storage/" + cfDirs[i] + "/")
		s.cfs[i] = db
	}
	return s, nil
}

// OpenMemory builds an all-in-memory Store, for tests and ephemeral
// nodes that opt out of persistence.
func OpenMemory() *Store {
	s := &Store{}
	for i := 0; i < int(columnFamilyCount); i++ {
		s.cfs[i] = database.NewMemDatabase()
	}
	return s
}

func newBackend(cfg Config, dir string) (database.Database, error) {
	switch cfg.DBType {
	case database.BadgerDBType:
		return database.NewBadgerDB(dir)
	case database.MemoryDB:
		return database.NewMemDatabase(), nil
	default:
		return database.NewLDBDatabase(dir, cfg.LevelDBCacheSize, cfg.LevelDBHandles)
	}
}

// CF returns the Database backing a column family.
func (s *Store) CF(cf ColumnFamily) database.Database {
	return s.cfs[cf]
}

// Close closes every column family's backend. In single-database mode
// every table shares one underlying Database, so closing CF 0's
// underlying backend once is sufficient for non-Partitioned stores;
// Partitioned stores close each distinct backend.
func (s *Store) Close() {
	if !s.partitioned {
		return
	}
	for i := 0; i < int(columnFamilyCount); i++ {
		s.cfs[i].Close()
	}
}
