package archive

import (
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/params"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.AutoMigrate(&NodeRecord{}, &ChunkAssignment{})
	t.Cleanup(func() { db.Close() })
	return NewManager(db)
}

func TestRegisterNodeSetsQuotaAndGracePeriod(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, m.RegisterNode("full-1", 1, "10.0.0.1", now))

	var rec NodeRecord
	require.NoError(t, m.db.First(&rec, "node_id = ?", "full-1").Error)
	require.Equal(t, 3, rec.RequiredChunks)
	require.Equal(t, GracePeriod, rec.ComplianceStatus)
	require.True(t, rec.GraceExpiresAt.After(now))
}

func TestRegisterNodeLightExemptFromArchival(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.RegisterNode("light-1", 0, "10.0.0.2", time.Now()))

	var rec NodeRecord
	require.NoError(t, m.db.First(&rec, "node_id = ?", "light-1").Error)
	require.Equal(t, 0, rec.RequiredChunks)

	var count int
	require.NoError(t, m.db.Model(&ChunkAssignment{}).Where("node_id = ?", "light-1").Count(&count).Error)
	require.Equal(t, 0, count)
}

func TestEnforceComplianceTransitionsGracePeriodToNonCompliant(t *testing.T) {
	m := newTestManager(t)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, m.db.Create(&NodeRecord{
		NodeID: "full-2", NodeType: 1, RequiredChunks: 3, AssignedChunkCount: 0,
		ComplianceStatus: GracePeriod, GraceExpiresAt: past.Add(time.Hour),
	}).Error)

	require.NoError(t, m.EnforceCompliance(time.Now()))

	var rec NodeRecord
	require.NoError(t, m.db.First(&rec, "node_id = ?", "full-2").Error)
	require.Equal(t, NonCompliant, rec.ComplianceStatus)
}

func TestEnforceComplianceRestoresCompliantWhenQuotaMet(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.db.Create(&NodeRecord{
		NodeID: "full-3", NodeType: 1, RequiredChunks: 3, AssignedChunkCount: 3,
		ComplianceStatus: NonCompliant,
	}).Error)

	require.NoError(t, m.EnforceCompliance(time.Now()))

	var rec NodeRecord
	require.NoError(t, m.db.First(&rec, "node_id = ?", "full-3").Error)
	require.Equal(t, Compliant, rec.ComplianceStatus)
}

func TestReplicateRoundBringsChunkToMinReplicas(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.db.Create(&NodeRecord{
			NodeID: id, NodeType: 1, RequiredChunks: 3, AssignedChunkCount: i,
			ComplianceStatus: Compliant,
		}).Error)
	}
	require.NoError(t, m.db.Create(&ChunkAssignment{ChunkID: "chunk-1", NodeID: "a", AssignedAt: now}).Error)

	require.NoError(t, m.ReplicateRound(10))

	var count int
	require.NoError(t, m.db.Model(&ChunkAssignment{}).Where("chunk_id = ?", "chunk-1").Count(&count).Error)
	require.Equal(t, params.ArchiveMinReplicas, count)
}

func TestStatsReportsCompliance(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.db.Create(&NodeRecord{NodeID: "x", RequiredChunks: 3, ComplianceStatus: Compliant}).Error)
	require.NoError(t, m.db.Create(&NodeRecord{NodeID: "y", RequiredChunks: 3, ComplianceStatus: NonCompliant}).Error)

	s, err := m.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, s.TotalNodes)
	require.Equal(t, 1, s.CompliantNodes)
	require.Equal(t, 1, s.NonCompliantNodes)
}
