package kafka

import (
	"context"
	"log"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/segmentio/kafka-go"
)

// Producer is the publish side of the bus. Publishes go through an inbox
// channel and a single writer goroutine: fire-and-forget for the caller,
// flushed on close. Write errors during a broker outage are logged, never
// surfaced to the request that triggered the publish.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				close(p.inbox)
				for m := range p.inbox {
					p.write(m)
				}
				_ = p.w.Close()
				close(p.closeCh)
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					close(p.closeCh)
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		log.Printf("kafka publish %s: %v", m.Topic, err)
	}
}

// Publish implements events.Publisher.
func (p *Producer) Publish(ctx context.Context, topic, key string, env events.Envelope) {
	m := kafka.Message{
		Topic: topic,
		Key:   events.PartitionKey(key),
		Value: events.MustMarshal(env),
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}
	select {
	case p.inbox <- m:
	case <-ctx.Done():
		log.Printf("kafka publish %s dropped: %v", topic, ctx.Err())
	}
}

// Close stops intake; the writer goroutine flushes what is left and exits.
func (p *Producer) Close() { close(p.inbox) }

// WaitClosed blocks until the flush is done.
func (p *Producer) WaitClosed() { <-p.closeCh }
