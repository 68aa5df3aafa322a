package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrBufferFull = errors.New("event buffer full")

// Producer queues messages on an in-memory inbox and writes them to Kafka
// from a single goroutine, so request handlers never wait on the broker.
type Producer struct {
	w       writer
	name    string
	logger  *zap.SugaredLogger
	inbox   chan kafka.Message
	done    chan struct{}
	started sync.Once
	closing sync.Once
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewProducer(brokers []string, name string, buf int, logger *zap.SugaredLogger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, name, buf, logger)
}

func newProducer(w writer, name string, buf int, logger *zap.SugaredLogger) *Producer {
	return &Producer{
		w:      w,
		name:   name,
		logger: logger,
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
	}
}

// Start runs the send loop until Close is called.
func (p *Producer) Start() {
	p.started.Do(func() { go p.loop() })
}

func (p *Producer) loop() {
	defer close(p.done)
	for m := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := p.w.WriteMessages(ctx, m); err != nil {
			p.logger.Errorw("publish event", "topic", m.Topic, "key", string(m.Key), "error", err)
		}
		cancel()
	}
}

// Publish wraps payload in an Envelope keyed by key. Messages sharing a key
// land on the same partition and keep their order.
func (p *Producer) Publish(_ context.Context, topic, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     topic,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.name,
		CorrelationID: key,
		Payload:       body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", topic, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return fmt.Errorf("%s: %w", topic, ErrBufferFull)
	}
}

// Close flushes queued messages and closes the writer.
func (p *Producer) Close() error {
	p.Start()
	p.closing.Do(func() { close(p.inbox) })
	<-p.done
	return p.w.Close()
}
