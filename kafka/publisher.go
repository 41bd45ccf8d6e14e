// Package kafka publishes finalized chain events — microblocks,
// transactions, and reward-window settlements — onto Kafka topics for
// downstream indexers and explorers, generalizing the teacher's
// datasync/chaindatafetcher/kafka repository/config pair from EVM
// ChainEvent/InternalTxTraces payloads to QNet's own event set.
package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/qnet-project/qnet-core/core/types"
	"github.com/qnet-project/qnet-core/log"
)

var logger = log.NewModuleLogger(log.Node)

const (
	DefaultReplicas   = 1
	DefaultPartitions = 1
)

// Config mirrors the teacher's KafkaConfig: a sarama client config plus
// the broker list and topic replication/partition factors.
type Config struct {
	SaramaConfig *sarama.Config
	Brokers      []string
	TopicPrefix  string
	Partitions   int32
	Replicas     int16
}

// DefaultConfig mirrors GetDefaultKafkaConfig: return-successes enabled
// (the publisher below is synchronous) and the newest wire protocol.
func DefaultConfig(brokers []string, topicPrefix string) *Config {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Version = sarama.MaxVersion
	return &Config{
		SaramaConfig: sc,
		Brokers:      brokers,
		TopicPrefix:  topicPrefix,
		Partitions:   DefaultPartitions,
		Replicas:     DefaultReplicas,
	}
}

// Publisher publishes finalized chain events to per-event-type Kafka
// topics, named topicPrefix-<event> the way the teacher's repository
// names topicPrefix-blockgroup / topicPrefix-tracegroup.
type Publisher struct {
	topicPrefix string
	producer    sarama.SyncProducer
}

// NewPublisher dials every broker in cfg.Brokers and returns a Publisher
// backed by a synchronous producer, matching the teacher's
// config.Producer.Return.Successes = true setting.
func NewPublisher(cfg *Config) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.SaramaConfig)
	if err != nil {
		return nil, fmt.Errorf("kafka: dial brokers: %w", err)
	}
	return &Publisher{topicPrefix: cfg.TopicPrefix, producer: producer}, nil
}

func (p *Publisher) publish(topic string, payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topicPrefix + "-" + topic,
		Value: sarama.ByteEncoder(encoded),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: publish %s: %w", topic, err)
	}
	logger.Debug("published chain event", "topic", msg.Topic, "partition", partition, "offset", offset)
	return nil
}

// PublishMicroblock announces a finalized microblock (spec.md §4.5's
// production cycle terminal step) to the "microblock" topic.
func (p *Publisher) PublishMicroblock(mb *types.Microblock) error {
	return p.publish("microblock", mb)
}

// PublishTransaction announces a transaction's inclusion in a finalized
// microblock to the "transaction" topic.
func (p *Publisher) PublishTransaction(tx *types.Transaction) error {
	return p.publish("transaction", tx)
}

// rewardSettlement is the payload PublishRewardSettlement emits: a
// window's per-node accrual, not a types.PhaseAwareReward by itself,
// since downstream consumers need the window number to correlate across
// nodes.
type rewardSettlement struct {
	Window uint64               `json:"window"`
	Reward types.PhaseAwareReward `json:"reward"`
}

// PublishRewardSettlement announces a reward window's settlement
// (spec.md §4.2's window processor) to the "reward" topic.
func (p *Publisher) PublishRewardSettlement(window uint64, reward types.PhaseAwareReward) error {
	return p.publish("reward", rewardSettlement{Window: window, Reward: reward})
}

// Close releases the underlying sarama producer's connections.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
