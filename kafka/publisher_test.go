package kafka

import (
	"testing"

	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/require"

	"github.com/qnet-project/qnet-core/common"
	"github.com/qnet-project/qnet-core/core/types"
)

func newTestPublisher(t *testing.T, expect int) (*Publisher, *mocks.SyncProducer) {
	t.Helper()
	mp := mocks.NewSyncProducer(t, nil)
	for i := 0; i < expect; i++ {
		mp.ExpectSendMessageAndSucceed()
	}
	return &Publisher{topicPrefix: "qnet", producer: mp}, mp
}

func TestPublishMicroblockSucceeds(t *testing.T) {
	pub, mp := newTestPublisher(t, 1)
	defer mp.Close()

	mb := &types.Microblock{Height: 42, ShardID: 1, Producer: common.Address("node-1")}
	require.NoError(t, pub.PublishMicroblock(mb))
}

func TestPublishTransactionSucceeds(t *testing.T) {
	pub, mp := newTestPublisher(t, 1)
	defer mp.Close()

	tx := &types.Transaction{From: common.Address("alice"), To: common.Address("bob"), Amount: 10}
	tx.SetHash()
	require.NoError(t, pub.PublishTransaction(tx))
}

func TestPublishRewardSettlementSucceeds(t *testing.T) {
	pub, mp := newTestPublisher(t, 1)
	defer mp.Close()

	reward := types.PhaseAwareReward{Node: common.Address("validator-1"), Pool2Accrued: 50}
	require.NoError(t, pub.PublishRewardSettlement(3, reward))
}
