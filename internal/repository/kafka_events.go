package repository

import (
	"context"
	"sync"
	"time"

	"scalpd/internal/events"
	pkgkafka "scalpd/pkg/kafka"
	applogger "scalpd/pkg/logger"
)

// KafkaEventBridge forwards engine events from the in-process bus to a Kafka
// topic so external consumers (dashboards, alerting) can follow the bot
// without touching the engine.
type KafkaEventBridge struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger

	mu          sync.Mutex
	unsubscribe func()
	wg          sync.WaitGroup
}

// bridgedTypes is the subset of bus events worth shipping out of process.
var bridgedTypes = []events.Type{
	events.TypeSignal,
	events.TypeTradeOpened,
	events.TypeTradeClosed,
	events.TypeAlert,
	events.TypeArbitrageDetected,
	events.TypeStateUpdated,
	events.TypeCycleComplete,
}

func NewKafkaEventBridge(producer *pkgkafka.Producer, topic string, l *applogger.Logger) *KafkaEventBridge {
	return &KafkaEventBridge{producer: producer, topic: topic, l: l}
}

// Start subscribes to the bus and pumps events until ctx is cancelled or
// Stop is called.
func (b *KafkaEventBridge) Start(ctx context.Context, bus *events.Bus) {
	ch, cancel := bus.Subscribe(bridgedTypes...)

	b.mu.Lock()
	b.unsubscribe = cancel
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				b.publish(ev)
			}
		}
	}()
}

func (b *KafkaEventBridge) publish(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := map[string]interface{}{
		"type":      string(ev.Type),
		"payload":   ev.Payload,
		"timestamp": ev.Timestamp,
	}
	if err := b.producer.Publish(ctx, b.topic, []byte(ev.Type), payload); err != nil {
		if b.l != nil {
			b.l.Warn("kafka event publish failed",
				applogger.String("type", string(ev.Type)),
				applogger.Error(err),
			)
		}
	}
}

// KafkaLogPublisher adapts the producer to the log collector's publisher
// interface so aggregated error logs ship over the same connection.
type KafkaLogPublisher struct {
	Producer *pkgkafka.Producer
}

func (p KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Producer.Publish(ctx, topic, nil, payload)
}

// Stop unsubscribes and waits for the pump to drain.
func (b *KafkaEventBridge) Stop() {
	b.mu.Lock()
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.mu.Unlock()
	b.wg.Wait()
}
