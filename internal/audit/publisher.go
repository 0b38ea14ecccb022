// v1
// internal/audit/publisher.go
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nksrentas/ecotrace/internal/breaker"
)

// kafkaMessageWriter mirrors the subset of kafka.Writer the publisher uses,
// so tests can inject a fake.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// PublisherConfig holds the audit mirroring settings.
type PublisherConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

const publisherQueueSize = 256

// Publisher asynchronously mirrors appended audit records to a Kafka topic.
// Strictly fire-and-forget: a full queue drops the message with a warning,
// and write failures stay behind the circuit breaker. Nothing here can fail
// a calculation.
type Publisher struct {
	cfg    PublisherConfig
	log    *slog.Logger
	writer kafkaMessageWriter
	brk    *breaker.Breaker

	queue    chan kafka.Message
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPublisher builds a publisher over a real kafka.Writer. Returns nil when
// publishing is disabled so callers can pass the result straight to
// NewLedger.
func NewPublisher(cfg PublisherConfig, bcfg breaker.Config, log *slog.Logger) *Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newPublisher(cfg, bcfg, log, w)
}

func newPublisher(cfg PublisherConfig, bcfg breaker.Config, log *slog.Logger, w kafkaMessageWriter) *Publisher {
	p := &Publisher{
		cfg:    cfg,
		log:    log,
		writer: w,
		brk:    breaker.New("audit-publisher", bcfg, log),
		queue:  make(chan kafka.Message, publisherQueueSize),
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx)
	return p
}

// Enqueue serializes rec and queues it for publishing. Never blocks.
func (p *Publisher) Enqueue(ctx context.Context, rec *Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		if p.log != nil {
			p.log.Warn("audit_publish_marshal_failed", "id", rec.ID, "err", err.Error())
		}
		return
	}
	msg := kafka.Message{Key: []byte(rec.RequestID), Value: payload}
	select {
	case p.queue <- msg:
	default:
		if p.log != nil {
			p.log.Warn("audit_publish_queue_full", "id", rec.ID)
		}
	}
}

func (p *Publisher) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			err := p.brk.Execute(ctx, func(ctx context.Context) error {
				return p.writer.WriteMessages(ctx, msg)
			})
			if err != nil && p.log != nil {
				p.log.Warn("audit_publish_failed", "topic", p.cfg.Topic, "err", err.Error())
			}
		}
	}
}

// Stop drains nothing and halts the worker; queued messages are dropped by
// design.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		if c, ok := p.writer.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	})
}
