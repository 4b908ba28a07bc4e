package kafka

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log"
	"time"

	"github.com/ariefcatur/go-shop-events.git/internal/events"
	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded envelope. Return nil only if the event was
// applied (or is a known no-op) and the offset may be committed; a non-nil
// error leaves the offset uncommitted so the broker redelivers.
type Handler func(ctx context.Context, env events.Envelope) error

type Consumer struct {
	brokers []string
	group   string
	topic   string
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{brokers: brokers, group: group, topic: topic, workers: workers}
}

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 30 * time.Second
)

// Run supervises the consume loop. A broker error tears the reader down and
// reconnects with capped doubling backoff; resubscription resumes from the
// last committed offset, which is where at-least-once delivery comes from.
// Run only returns when ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, h Handler) {
	delay := backoffBase
	for {
		err := c.consume(ctx, h)
		if ctx.Err() != nil {
			return
		}
		log.Printf("consumer %s/%s: %v, reconnecting in %s", c.group, c.topic, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		if delay *= 2; delay > backoffCap {
			delay = backoffCap
		}
	}
}

// workerIndex pins a message key to one worker. All events for an order (or
// user) carry that id as the key, so pinning preserves their relative order
// even with several workers running.
func workerIndex(key []byte, workers int) int {
	if workers <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(key)
	return int(h.Sum32() % uint32(workers))
}

func (c *Consumer) consume(ctx context.Context, h Handler) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.brokers,
		GroupID:        c.group,
		Topic:          c.topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	defer r.Close()

	// one channel per worker, routed by message key, so events sharing a key
	// are handled strictly in offset order
	jobs := make([]chan kafka.Message, c.workers)
	errs := make(chan error, c.workers)

	for i := 0; i < c.workers; i++ {
		jobs[i] = make(chan kafka.Message, 256)
		go func(in <-chan kafka.Message) {
			for m := range in {
				var env events.Envelope
				if err := json.Unmarshal(m.Value, &env); err != nil {
					// malformed envelope will never become processable: drop
					log.Printf("consumer %s/%s: bad envelope at offset %d: %v", c.group, c.topic, m.Offset, err)
				} else if err := h(ctx, env); err != nil {
					errs <- err
					continue
				}
				if err := r.CommitMessages(ctx, m); err != nil {
					errs <- err
				}
			}
		}(jobs[i])
	}
	closeAll := func() {
		for _, ch := range jobs {
			close(ch)
		}
	}

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			closeAll()
			return err
		}
		select {
		case jobs[workerIndex(m.Key, c.workers)] <- m:
		case <-ctx.Done():
			closeAll()
			return ctx.Err()
		}

		// non-blocking drain so a stuck handler cannot deadlock the dispatcher
		select {
		case e := <-errs:
			log.Printf("consumer %s/%s worker error: %v", c.group, c.topic, e)
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}
