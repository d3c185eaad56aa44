package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/metrics"
	"github.com/iliyamo/seat-pos/internal/queue"
	"github.com/iliyamo/seat-pos/internal/repository"
)

// Notifier is told about a detected day change before any state moves.
type Notifier func(previous, current string)

// RolloverMonitor moves every component to a new business date once the
// clock has left the current one.  It is the only place the calendar
// advances.
type RolloverMonitor struct {
	cal     *Calendar
	clock   Clock
	seats   *SeatRegistry
	day     *BusinessDay
	ledger  *OrderLedger
	archive *SalesArchive
	events  Publisher
	notify  Notifier
	log     *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRolloverMonitor panics on nil components.
func NewRolloverMonitor(cal *Calendar, clock Clock, seats *SeatRegistry, day *BusinessDay, ledger *OrderLedger,
	archive *SalesArchive, events Publisher, notify Notifier, log *zap.Logger) *RolloverMonitor {
	if cal == nil || clock == nil || seats == nil || day == nil || ledger == nil || archive == nil {
		panic("nil dependency passed to NewRolloverMonitor")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RolloverMonitor{
		cal: cal, clock: clock, seats: seats, day: day, ledger: ledger,
		archive: archive, events: events, notify: notify, log: log,
	}
}

// Check compares the clock's date with the calendar and, on a mismatch,
// cascades the reset: seats for the new date, a closed business day, the
// new date's orders and the viewed month.  Order mutations wait until the
// cascade is done.  Matching dates make it a no-op.
func (m *RolloverMonitor) Check(ctx context.Context) (bool, repository.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := Today(m.clock)
	previous := m.cal.Date()
	if today == previous {
		return false, repository.Result{Outcome: repository.OutcomeOK}
	}
	resume := m.ledger.pause()
	defer resume()

	m.log.Info("business date changed", zap.String("previous", previous), zap.String("current", today))
	if m.notify != nil {
		m.notify(previous, today)
	}
	m.cal.set(today)

	results := []repository.Result{
		m.seats.Load(ctx, today),
		m.day.ResetForNewDay(ctx, today),
		m.ledger.Load(ctx, today),
	}
	if err := m.archive.ResetViewMonth(today); err != nil {
		m.log.Error("reset viewed month", zap.Error(err))
	} else {
		y, mo := m.archive.ViewMonth()
		res, err := m.archive.LoadMonth(ctx, y, mo)
		if err != nil {
			m.log.Error("load month after rollover", zap.Error(err))
		}
		results = append(results, res)
	}

	metrics.RecordRollover()
	publish(ctx, m.events, m.log, queue.RouteDayRolled, queue.DayRolledEvent{
		Previous:   previous,
		Current:    today,
		DetectedAt: m.clock.Now().Format(time.RFC3339),
	})
	return true, repository.Worst(results...)
}

// Foreground is called when a terminal regains focus.
func (m *RolloverMonitor) Foreground(ctx context.Context) (bool, repository.Result) {
	return m.Check(ctx)
}

// Start schedules Check on a cron spec such as "@every 1m".
func (m *RolloverMonitor) Start(spec string) error {
	c := cron.New(cron.WithLocation(m.clock.Now().Location()))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		m.Check(ctx)
	}); err != nil {
		return fmt.Errorf("schedule rollover %q: %w", spec, err)
	}
	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (m *RolloverMonitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
