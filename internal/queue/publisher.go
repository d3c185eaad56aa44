package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrQueueFull is returned when the outbound buffer cannot take more events.
var ErrQueueFull = errors.New("event buffer full")

type outbound struct {
	key  string
	body []byte
}

// Publisher ships events to RabbitMQ from a background goroutine so a slow
// or missing broker never holds up a payment.  Events are JSON, persistent,
// and routed through the default exchange to a durable queue named after
// the routing key.
type Publisher struct {
	url string
	log *zap.Logger
	out chan outbound
}

// NewPublisher returns a publisher with room for buffer pending events.
// Call Run to start delivering.
func NewPublisher(url string, buffer int, log *zap.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log, out: make(chan outbound, buffer)}
}

// Publish encodes event and queues it for delivery.
func (p *Publisher) Publish(_ context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	select {
	case p.out <- outbound{key: routingKey, body: body}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is cancelled, reconnecting with
// exponential backoff whenever the broker goes away.
func (p *Publisher) Run(ctx context.Context) {
	backoff := time.Second
	var pending *outbound
	for {
		conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
		if err != nil {
			p.log.Warn("rabbitmq: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		pending, err = p.deliver(ctx, conn, pending)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		p.log.Warn("rabbitmq: publish loop ended, reconnecting", zap.Error(err))
	}
}

// deliver publishes until ctx ends or the channel fails.  The event that
// was in flight on failure is returned so it can be retried after reconnect.
func (p *Publisher) deliver(ctx context.Context, conn *amqp.Connection, pending *outbound) (*outbound, error) {
	ch, err := conn.Channel()
	if err != nil {
		return pending, fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	for _, q := range Routes {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return pending, fmt.Errorf("queue declare %s: %w", q, err)
		}
	}

	send := func(m outbound) error {
		return ch.PublishWithContext(ctx,
			"",    // default exchange
			m.key, // routing key = queue name
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // store on disk
				Timestamp:    time.Now().UTC(),
				Body:         m.body,
			})
	}

	if pending != nil {
		if err := send(*pending); err != nil {
			return pending, err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case m := <-p.out:
			if err := send(m); err != nil {
				return &m, err
			}
		}
	}
}
