package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SalesLog appends one human-friendly line per event to a file.
type SalesLog struct {
	dir string
	mu  sync.Mutex
}

// NewSalesLog writes to dir/sales.log.  An empty dir means "logs".
func NewSalesLog(dir string) *SalesLog {
	if dir == "" {
		dir = "logs"
	}
	return &SalesLog{dir: dir}
}

// Path returns the log file path.
func (s *SalesLog) Path() string { return filepath.Join(s.dir, "sales.log") }

// Handle formats one delivery by routing key and appends it.
func (s *SalesLog) Handle(routingKey string, body []byte) error {
	line, err := FormatEvent(routingKey, body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(s.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders an event body as a single log line.
func FormatEvent(routingKey string, body []byte) (string, error) {
	switch routingKey {
	case RoutePaymentCompleted:
		var ev PaymentCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Payment completed | payment_id=%s | date=%s | seat=%q | items=%d | amount=%d\n",
			ev.PaidAt, ev.PaymentID, ev.Date, ev.SeatName, ev.Items, ev.Amount), nil
	case RouteDaySettled:
		var ev DaySettledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Day settled | date=%s | orders=%d | total=%d\n",
			ev.SettledAt, ev.Date, ev.TotalOrders, ev.TotalSales), nil
	case RouteDayRolled:
		var ev DayRolledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Day rolled over | from=%s | to=%s\n", ev.DetectedAt, ev.Previous, ev.Current), nil
	}
	return "", fmt.Errorf("unknown routing key %q", routingKey)
}

// StartConsumer consumes every POS queue and hands deliveries to the sales
// log until ctx is cancelled, reconnecting with backoff on failure.
// Offending messages are rejected without requeue so one bad event cannot
// stall the loop.
func StartConsumer(ctx context.Context, url string, sink *SalesLog, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("sales-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			sleep(ctx, backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warn("sales-consumer: consume loop ended, reconnecting", zap.Error(err))
		sleep(ctx, 2*time.Second)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink *SalesLog, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("sales-consumer: set QoS failed", zap.Error(err))
	}

	var streams []<-chan amqp.Delivery
	for _, q := range Routes {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		streams = append(streams, msgs)
	}

	merged := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, s := range streams {
		wg.Add(1)
		go func(s <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range s {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}(s)
	}
	go func() { wg.Wait(); close(merged) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.Handle(d.RoutingKey, d.Body); err != nil {
				log.Warn("sales-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
