package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

// NewProducer creates a producer that can publish to any booking topic; the
// topic is chosen per message.
func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer}
}

// Publish streams one event to the given topic, keyed by the provider order
// id so all events of one booking attempt land on the same partition.
func (p *Producer) Publish(topic string, key string, value []byte) error {
	fmt.Printf("Publishing to Kafka [%s]: %s\n", topic, string(value))

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// Close flushes and shuts down the writer
func (p *Producer) Close() error {
	return p.Writer.Close()
}
