package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/qerrors"
)

type fakeBalanceCredit struct {
	credited map[common.Address]uint64
}

func newFakeBalanceCredit() *fakeBalanceCredit {
	return &fakeBalanceCredit{credited: make(map[common.Address]uint64)}
}

func (f *fakeBalanceCredit) Credit(addr common.Address, amount uint64) error {
	f.credited[addr] += amount
	return nil
}

func TestEmissionForWindowHalves(t *testing.T) {
	assert.Equal(t, Pool1BaseRate, EmissionForWindow(0))
	assert.Equal(t, Pool1BaseRate/2, EmissionForWindow(HalvingPeriodWindows))
	assert.Equal(t, Pool1BaseRate/4, EmissionForWindow(HalvingPeriodWindows*2))
}

func TestAccrueAccumulatesAcrossPools(t *testing.T) {
	ledger := NewLedger(100)
	node := common.Address("node-1")

	ledger.Accrue(node, 100, 0, 0, 1)
	ledger.AccruePool2(node, 50, 1)
	ledger.AccruePool3(node, 25, 1)

	got := ledger.Accrued(node)
	assert.EqualValues(t, 100, got.Pool1Accrued)
	assert.EqualValues(t, 50, got.Pool2Accrued)
	assert.EqualValues(t, 25, got.Pool3Accrued)
	assert.EqualValues(t, 175, got.TotalAccrued())
}

func TestClaimCreditsAndResetsLedger(t *testing.T) {
	ledger := NewLedger(100)
	node := common.Address("node-1")
	ledger.Accrue(node, 100, 50, 25, 1)

	credit := newFakeBalanceCredit()
	total, err := ledger.Claim(node, credit, 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 175, total)
	assert.EqualValues(t, 175, credit.credited[node])

	assert.EqualValues(t, 0, ledger.Accrued(node).TotalAccrued())
}

func TestClaimReturnsZeroWithNothingAccrued(t *testing.T) {
	ledger := NewLedger(100)
	node := common.Address("node-1")
	total, err := ledger.Claim(node, newFakeBalanceCredit(), 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestClaimEnforcesCooldown(t *testing.T) {
	ledger := NewLedger(100)
	node := common.Address("node-1")
	credit := newFakeBalanceCredit()

	ledger.Accrue(node, 100, 0, 0, 1)
	_, err := ledger.Claim(node, credit, 1000)
	require.NoError(t, err)

	ledger.Accrue(node, 50, 0, 0, 2)
	_, err = ledger.Claim(node, credit, 1001)
	assert.Equal(t, qerrors.ErrRateLimitExceeded, err)
}

func TestAccrueIsolatesDistinctNodes(t *testing.T) {
	ledger := NewLedger(100)
	ledger.Accrue("node-1", 10, 0, 0, 1)
	ledger.Accrue("node-2", 20, 0, 0, 1)

	assert.EqualValues(t, 10, ledger.Accrued("node-1").Pool1Accrued)
	assert.EqualValues(t, 20, ledger.Accrued("node-2").Pool1Accrued)
}
