package archive

import (
	"errors"
	"sort"
	"time"

	"github.com/jinzhu/gorm"

	"github.com/qnet-project/qnet-core/log"
	"github.com/qnet-project/qnet-core/params"
)

var logger = log.NewModuleLogger(log.Archive)

var errNodeNotFound = errors.New("archive: node not found")

// Manager enforces the mandatory chunk-archival obligations of
// archive_manager.rs's ArchiveReplicationManager: Full nodes archive
// params.FullArchiveChunks, Super nodes params.SuperArchiveChunks, Light
// nodes are exempt, and every chunk must accumulate at least
// params.ArchiveMinReplicas holders.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// requiredChunks returns the static per-type quota spec.md §3 assigns;
// archive_manager.rs's adaptive-scaling variant, which special-cases
// small networks, is not carried here.
func requiredChunks(nodeType int) int {
	switch nodeType {
	case 1:
		return params.FullArchiveChunks
	case 2:
		return params.SuperArchiveChunks
	default:
		return params.LightArchiveChunks
	}
}

// RegisterNode admits a node into the archival system with a grace
// period before compliance is enforced, then immediately forces
// mandatory chunk assignments — archive_manager.rs's
// register_archive_node has no opt-out, and neither does this.
func (m *Manager) RegisterNode(nodeID string, nodeType int, ipAddress string, now time.Time) error {
	required := requiredChunks(nodeType)
	rec := NodeRecord{
		NodeID:           nodeID,
		NodeType:         nodeType,
		IPAddress:        ipAddress,
		LastSeen:         now,
		RequiredChunks:   required,
		ComplianceStatus: GracePeriod,
		GraceExpiresAt:   now.Add(params.ArchiveGracePeriod),
	}
	if err := m.db.Save(&rec).Error; err != nil {
		return err
	}
	logger.Info("registered archive node", "node", nodeID, "type", nodeType, "quota", required)

	if required > 0 {
		return m.assignMandatoryChunks(nodeID, required)
	}
	return nil
}

// underreplicatedChunks returns up to max chunk IDs holding fewer than
// params.ArchiveMinReplicas assignments, most urgent (fewest replicas)
// first — archive_manager.rs's find_underreplicated_chunks.
func (m *Manager) underreplicatedChunks(max int) ([]string, error) {
	rows := []struct {
		ChunkID string
		Count   int
	}{}
	err := m.db.Table("archive_chunk_assignments").
		Select("chunk_id, count(*) as count").
		Group("chunk_id").
		Having("count(*) < ?", params.ArchiveMinReplicas).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Count < rows[j].Count })
	if len(rows) > max {
		rows = rows[:max]
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ChunkID
	}
	return ids, nil
}

// assignMandatoryChunks forces nodeID to hold up to count underreplicated
// chunks, mirroring archive_manager.rs's FORCE-assignment semantics:
// the node is not consulted, only informed.
func (m *Manager) assignMandatoryChunks(nodeID string, count int) error {
	chunks, err := m.underreplicatedChunks(count)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		logger.Info("no underreplicated chunks to assign", "node", nodeID)
		return nil
	}

	now := time.Now()
	for _, chunkID := range chunks {
		assignment := ChunkAssignment{ChunkID: chunkID, NodeID: nodeID, AssignedAt: now}
		if err := m.db.Create(&assignment).Error; err != nil {
			return err
		}
	}
	if err := m.db.Model(&NodeRecord{}).Where("node_id = ?", nodeID).
		UpdateColumn("assigned_chunk_count", gorm.Expr("assigned_chunk_count + ?", len(chunks))).Error; err != nil {
		return err
	}
	logger.Info("forced chunk assignment", "node", nodeID, "count", len(chunks))
	return nil
}

// EnforceCompliance walks every node, transitions compliance state per
// archive_manager.rs's enforce_compliance, and forces additional
// assignments onto any node found non-compliant or whose grace period
// expired without meeting quota.
func (m *Manager) EnforceCompliance(now time.Time) error {
	var nodes []NodeRecord
	if err := m.db.Where("required_chunks > 0").Find(&nodes).Error; err != nil {
		return err
	}

	for _, n := range nodes {
		missing := n.RequiredChunks - n.AssignedChunkCount
		var next ComplianceStatus

		switch n.ComplianceStatus {
		case GracePeriod:
			if now.Before(n.GraceExpiresAt) {
				continue
			}
			if missing > 0 {
				next = NonCompliant
			} else {
				next = Compliant
			}
		case Compliant:
			if missing > 0 {
				next = NonCompliant
			} else {
				continue
			}
		case NonCompliant:
			if missing <= 0 {
				next = Compliant
			} else {
				next = NonCompliant
			}
		case Unresponsive:
			if now.Sub(n.LastSeen) < 2*time.Hour {
				if missing <= 0 {
					next = Compliant
				} else {
					next = NonCompliant
				}
			} else {
				continue
			}
		}

		if err := m.db.Model(&NodeRecord{}).Where("node_id = ?", n.NodeID).
			UpdateColumn("compliance_status", next).Error; err != nil {
			return err
		}

		if next == NonCompliant && missing > 0 {
			logger.Warn("node non-compliant with archival obligations", "node", n.NodeID, "missing", missing)
			if err := m.assignMandatoryChunks(n.NodeID, missing); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stats summarizes archival health, analogous to archive_manager.rs's
// ArchiveStats/get_archive_stats.
type Stats struct {
	TotalNodes            int
	CompliantNodes        int
	NonCompliantNodes     int
	UnderreplicatedChunks int
}

func (m *Manager) Stats() (Stats, error) {
	var s Stats
	if err := m.db.Model(&NodeRecord{}).Count(&s.TotalNodes).Error; err != nil {
		return s, err
	}
	if err := m.db.Model(&NodeRecord{}).Where("compliance_status = ?", Compliant).Count(&s.CompliantNodes).Error; err != nil {
		return s, err
	}
	if err := m.db.Model(&NodeRecord{}).Where("compliance_status = ?", NonCompliant).Count(&s.NonCompliantNodes).Error; err != nil {
		return s, err
	}
	under, err := m.underreplicatedChunks(1 << 20)
	if err != nil {
		return s, err
	}
	s.UnderreplicatedChunks = len(under)
	return s, nil
}

// ReplicateRound runs one pass of archive_manager.rs's background
// replication loop: find underreplicated chunks and force assignment
// onto eligible nodes with spare capacity, least-loaded first.
func (m *Manager) ReplicateRound(max int) error {
	chunks, err := m.underreplicatedChunks(max)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	for _, chunkID := range chunks {
		var holders []ChunkAssignment
		if err := m.db.Where("chunk_id = ?", chunkID).Find(&holders).Error; err != nil {
			return err
		}
		needed := params.ArchiveMinReplicas - len(holders)
		if needed <= 0 {
			continue
		}

		held := make(map[string]bool, len(holders))
		for _, h := range holders {
			held[h.NodeID] = true
		}

		var candidates []NodeRecord
		if err := m.db.Where("required_chunks > 0").
			Order("assigned_chunk_count asc").Find(&candidates).Error; err != nil {
			return err
		}

		assigned := 0
		for _, c := range candidates {
			if assigned >= needed {
				break
			}
			if held[c.NodeID] {
				continue
			}
			if err := m.db.Create(&ChunkAssignment{ChunkID: chunkID, NodeID: c.NodeID, AssignedAt: time.Now()}).Error; err != nil {
				return err
			}
			if err := m.db.Model(&NodeRecord{}).Where("node_id = ?", c.NodeID).
				UpdateColumn("assigned_chunk_count", gorm.Expr("assigned_chunk_count + 1")).Error; err != nil {
				return err
			}
			assigned++
		}
		logger.Info("replicated chunk", "chunk", chunkID, "new_replicas", assigned)
	}
	return nil
}
