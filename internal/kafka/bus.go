package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Bus routes envelopes to one Producer per topic.
type Bus struct {
	producers map[string]*Producer
}

func NewBus(brokers []string, buf int, log *zap.Logger, topics ...string) *Bus {
	b := &Bus{producers: make(map[string]*Producer, len(topics))}
	for _, t := range topics {
		b.producers[t] = NewProducer(brokers, t, buf, log)
	}
	return b
}

func (b *Bus) Start(ctx context.Context) {
	for _, p := range b.producers {
		p.Start(ctx)
	}
}

// Publish encodes env and queues it on topic, keyed so that all events of one
// entity land on the same partition. It never waits on the broker.
func (b *Bus) Publish(ctx context.Context, topic, key string, env Envelope) error {
	p, ok := b.producers[topic]
	if !ok {
		return fmt.Errorf("kafka: no producer for topic %q", topic)
	}
	return p.Publish(ctx, []byte(key), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

func (b *Bus) Close() {
	for _, p := range b.producers {
		p.Close()
	}
}

func (b *Bus) WaitClosed() {
	for _, p := range b.producers {
		p.WaitClosed()
	}
}
