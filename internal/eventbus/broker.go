package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/MrWong99/screeningd/internal/apperr"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/eventbus/envelope"
)

// QueueName is the durable work queue domain events are published to and
// consumed from, matching original_source's rabbitmq_event_publisher.py.
const QueueName = "screening.events"

const reconnectBackoff = 5 * time.Second

// Broker is an AMQP-backed EventPublisher. Each Publish opens a fresh
// connection/channel, declares the durable queue, and publishes with
// delivery_mode=persistent.
//
// Safe for concurrent use.
type Broker struct {
	url string

	mu       sync.Mutex
	handlers []consumerHandler

	consumerCancel context.CancelFunc
	consumerDone   chan struct{}
}

type consumerHandler struct {
	kind    domain.EventKind
	handler Handler
}

// NewBroker creates a Broker that dials url (an amqp:// URI) for every
// publish and for the consumer loop.
func NewBroker(url string) *Broker {
	return &Broker{url: url}
}

// Subscribe registers handler for kind. Handlers run inside the consumer
// loop's goroutine, synchronously, so ack/nack ordering is preserved.
func (b *Broker) Subscribe(kind domain.EventKind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, consumerHandler{kind: kind, handler: handler})
}

// Publish serializes event to the envelope wire format and publishes it
// to the durable queue with delivery_mode=persistent. Any connection or
// channel error is returned wrapped in apperr.ErrBrokerUnavailable.
func (b *Broker) Publish(ctx context.Context, event domain.Event) error {
	body, err := envelope.Encode(event)
	if err != nil {
		return fmt.Errorf("eventbus: encode event: %w", err)
	}

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return apperr.Wrap(apperr.ErrBrokerUnavailable, "eventbus: dial broker", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return apperr.Wrap(apperr.ErrBrokerUnavailable, "eventbus: open channel", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return apperr.Wrap(apperr.ErrBrokerUnavailable, "eventbus: declare queue", err)
	}

	err = ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return apperr.Wrap(apperr.ErrBrokerUnavailable, "eventbus: publish", err)
	}
	return nil
}

// dispatch runs every handler registered for event.Kind() synchronously,
// collecting failures so the caller can nack-with-requeue if any handler
// failed. Mirrors RabbitMQEventPublisher._dispatch in the Python original.
func (b *Broker) dispatch(ctx context.Context, event domain.Event) error {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		if h.kind == event.Kind() {
			handlers = append(handlers, h.handler)
		}
	}
	b.mu.Unlock()

	var failures int
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			slog.Error("broker consumer handler failed", "event_kind", event.Kind(), "err", err)
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("eventbus: %d handler(s) failed", failures)
	}
	return nil
}

// StartConsumer launches the consumer loop in a background goroutine. It
// connects, declares the durable queue, sets prefetch=1, and for each
// delivery: decode envelope, dispatch to handlers, ack on full success or
// nack-with-requeue on any handler failure. Connection errors trigger
// reconnect with a 5s backoff until Stop is called.
func (b *Broker) StartConsumer(ctx context.Context) {
	b.mu.Lock()
	if b.consumerCancel != nil {
		b.mu.Unlock()
		return
	}
	consumerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.consumerCancel = cancel
	b.consumerDone = done
	b.mu.Unlock()

	go func() {
		defer close(done)
		b.consumeLoop(consumerCtx)
	}()
	slog.Info("broker consumer started", "queue", QueueName)
}

// Stop cancels the consumer loop and waits for it to exit.
func (b *Broker) Stop() {
	b.mu.Lock()
	cancel := b.consumerCancel
	done := b.consumerDone
	b.consumerCancel = nil
	b.consumerDone = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

func (b *Broker) consumeLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := b.consumeOnce(ctx); err != nil {
			slog.Warn("broker consumer connection error, reconnecting", "err", err, "backoff", reconnectBackoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectBackoff):
			}
		}
	}
}

func (b *Broker) consumeOnce(ctx context.Context) error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return fmt.Errorf("connection closed")
			}
			return fmt.Errorf("connection closed: %w", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			b.handleDelivery(ctx, ch, d)
		}
	}
}

func (b *Broker) handleDelivery(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	event, err := envelope.Decode(d.Body)
	if err != nil {
		slog.Error("broker consumer: invalid envelope, nacking without requeue", "err", err)
		_ = ch.Nack(d.DeliveryTag, false, false)
		return
	}
	if err := b.dispatch(ctx, event); err != nil {
		_ = ch.Nack(d.DeliveryTag, false, true)
		return
	}
	_ = ch.Ack(d.DeliveryTag, false)
}
