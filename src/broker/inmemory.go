package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 256

// InMemoryBroker delivers messages to subscribers within the process.
// Publishing never blocks: a subscriber whose buffer is full misses the
// message, so a stalled reader cannot stall the publisher.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
	offsets     map[string]int64
	dropped     int64
	closed      bool
	done        chan struct{}
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]chan Message),
		offsets:     make(map[string]int64),
		done:        make(chan struct{}),
	}
}

// Publish sends the message to every subscriber of topic.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.offsets[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.offsets[topic]++

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			b.dropped++
		}
	}
	return nil
}

// Subscribe returns a channel receiving messages published to topic after
// the call. The channel is closed when ctx is done or the broker closes.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	ch := make(chan Message, subscriberBuffer)
	b.subscribers[topic] = append(b.subscribers[topic], ch)

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(topic, ch)
		case <-b.done:
		}
	}()

	return ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, target chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, ch := range subs {
		if ch == target {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber
// buffer was full.
func (b *InMemoryBroker) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Close closes all subscriber channels.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)

	for topic, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
	return nil
}
