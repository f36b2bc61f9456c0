package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const (
	DishesTopic = "grubdash.dishes"
	OrdersTopic = "grubdash.orders"
)

// TopicFor returns the topic events about resource are written to.
func TopicFor(resource string) string {
	if resource == ResourceOrder {
		return OrdersTopic
	}
	return DishesTopic
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

// NewProducerConfig is the producer configuration the publisher expects.
func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0
	return config
}

// NewKafkaPublisher connects to a comma separated list of brokers.
func NewKafkaPublisher(brokers string, logger *logrus.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, logger), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		logger:   logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	topic := TopicFor(event.Resource)
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", event.Type, err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":      topic,
		"partition":  partition,
		"offset":     offset,
		"event_type": event.Type,
		"id":         event.ID,
	}).Debug("Event published to Kafka")

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
