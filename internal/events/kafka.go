package events

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/planrelay/configs"
)

const flushTimeoutMs = 5000

// producer is the part of *kafka.Producer the publisher uses.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// KafkaPublisher produces events asynchronously; delivery failures are
// reported through the logger by a background goroutine.
type KafkaPublisher struct {
	producer producer
	topic    string
	logger   *logrus.Logger
	done     chan struct{}
}

func NewKafkaPublisher(cfg configs.KafkaConfig, logger *logrus.Logger) (*KafkaPublisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Broker,
		"client.id":         "planrelay",
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.WithFields(logrus.Fields{"broker": cfg.Broker, "topic": cfg.Topic}).Info("Kafka producer initialized")
	return newKafkaPublisher(producer, cfg.Topic, logger), nil
}

func newKafkaPublisher(producer producer, topic string, logger *logrus.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go p.deliveryReport()
	return p
}

func (p *KafkaPublisher) deliveryReport() {
	defer close(p.done)
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				p.logger.WithError(ev.TopicPartition.Error).Error("event delivery failed")
			}
		case kafka.Error:
			p.logger.WithError(ev).Warn("kafka producer error")
		}
	}
}

func (p *KafkaPublisher) Publish(_ context.Context, event Event) error {
	data, err := encode(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Email),
		Value:          data,
	}, nil)
}

// Close flushes outstanding events and stops the producer.
func (p *KafkaPublisher) Close() {
	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		p.logger.WithField("remaining", remaining).Warn("closing Kafka producer with undelivered events")
	}
	p.producer.Close()
	<-p.done
	p.logger.Info("Kafka producer closed")
}
