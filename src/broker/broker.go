// Package broker defines the interface for message brokers and provides implementations.
package broker

import (
	"context"
	"errors"
)

// Broker abstracts message publishing and consumption.
// Build events go to an in-memory broker for the status display and, when
// configured, to Redpanda/Kafka for other consumers.
type Broker interface {
	// Publish sends a message to a topic with an optional key for partitioning.
	// For in-memory broker, key is carried but not used for routing.
	// For Redpanda/Kafka, key is used for partition assignment.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel for consuming messages from a topic.
	// groupID is used for consumer group coordination in Kafka.
	// For in-memory broker, groupID is ignored.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}

// Fanout publishes every message to all of its brokers.
type Fanout []Broker

// Publish sends the message to each broker, returning all failures joined.
func (f Fanout) Publish(ctx context.Context, topic string, key string, value []byte) error {
	var errs []error
	for _, b := range f {
		if err := b.Publish(ctx, topic, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe subscribes on the first broker only.
func (f Fanout) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	if len(f) == 0 {
		return nil, errors.New("no brokers configured")
	}
	return f[0].Subscribe(ctx, topic, groupID)
}

// Close closes every broker.
func (f Fanout) Close() error {
	var errs []error
	for _, b := range f {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
