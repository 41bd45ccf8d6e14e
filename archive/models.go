// Package archive implements the Archive Replication Manager: mandatory
// chunk-archival obligations for Full/Super nodes, replica-count
// enforcement and compliance tracking, supplemented from
// original_source's archive_manager.rs (no named module in spec.md's
// distillation — see SPEC_FULL.md's Supplemented features section).
package archive

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/go-sql-driver/mysql"
)

// ComplianceStatus mirrors archive_manager.rs's ComplianceStatus enum.
type ComplianceStatus int

const (
	Compliant ComplianceStatus = iota
	NonCompliant
	Unresponsive
	GracePeriod
)

func (s ComplianceStatus) String() string {
	switch s {
	case Compliant:
		return "compliant"
	case NonCompliant:
		return "non_compliant"
	case Unresponsive:
		return "unresponsive"
	case GracePeriod:
		return "grace_period"
	default:
		return "unknown"
	}
}

// NodeRecord is the gorm-managed row tracking one archive node's
// obligations and compliance state.
type NodeRecord struct {
	NodeID             string `gorm:"primary_key"`
	NodeType           int
	IPAddress          string
	LastSeen           time.Time
	RequiredChunks     int
	AssignedChunkCount int
	ComplianceStatus   ComplianceStatus
	GraceExpiresAt     time.Time
}

func (NodeRecord) TableName() string { return "archive_nodes" }

// ChunkAssignment is the gorm-managed row mapping one chunk to one
// holder node; a chunk with N assignment rows has N replicas.
type ChunkAssignment struct {
	ChunkID      string `gorm:"primary_key;size:64"`
	NodeID       string `gorm:"primary_key"`
	HeightStart  uint64
	HeightEnd    uint64
	AssignedAt   time.Time
}

func (ChunkAssignment) TableName() string { return "archive_chunk_assignments" }

// OpenLedger migrates the schema and returns a ready-to-use *gorm.DB,
// mirroring how the teacher's SQL-backed subsystems open their own
// dedicated connection rather than sharing the chain's key-value store.
func OpenLedger(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.AutoMigrate(&NodeRecord{}, &ChunkAssignment{})
	return db, nil
}
