package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/repository"
)

// Deps are the process-wide resources a session is built from.
type Deps struct {
	Gateway *repository.Gateway
	Clock   Clock
	Events  Publisher // nil: events are dropped
	Notify  Notifier  // nil: day changes are only logged
	Logger  *zap.Logger
}

// Session is the single set of POS services shared by every request.
type Session struct {
	Calendar *Calendar
	Seats    *SeatRegistry
	Menu     *MenuCatalog
	Ledger   *OrderLedger
	Day      *BusinessDay
	Archive  *SalesArchive
	Rollover *RolloverMonitor

	gw  *repository.Gateway
	log *zap.Logger
}

// NewSession constructs and wires every service.  The calendar starts at
// the clock's current date.
func NewSession(d Deps) *Session {
	if d.Gateway == nil || d.Clock == nil {
		panic("nil dependency passed to NewSession")
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	events := d.Events
	if events == nil {
		events = NopPublisher()
	}

	cal := NewCalendar(Today(d.Clock))
	seats := NewSeatRegistry(d.Gateway, cal, d.Clock, log.Named("seats"))
	menu := NewMenuCatalog(d.Gateway, d.Clock, log.Named("menu"))
	archive := NewSalesArchive(d.Gateway, seats, d.Clock, log.Named("sales"))
	day := NewBusinessDay(d.Gateway, cal, d.Clock, archive, events, log.Named("business"))
	ledger := NewOrderLedger(d.Gateway, cal, d.Clock, day, seats, events, log.Named("orders"))
	day.orders = ledger
	rollover := NewRolloverMonitor(cal, d.Clock, seats, day, ledger, archive, events, d.Notify, log.Named("rollover"))

	return &Session{
		Calendar: cal,
		Seats:    seats,
		Menu:     menu,
		Ledger:   ledger,
		Day:      day,
		Archive:  archive,
		Rollover: rollover,
		gw:       d.Gateway,
		log:      log,
	}
}

// Bootstrap loads menu, seats, open orders, business status and the
// current month, in that order.  localMode is true when no remote store is
// configured and everything is served from the local store.
func (s *Session) Bootstrap(ctx context.Context) (localMode bool, res repository.Result) {
	date := s.Calendar.Date()
	results := []repository.Result{
		s.Menu.Load(ctx),
		s.Seats.Load(ctx, date),
		s.Ledger.Load(ctx, date),
		s.Day.Load(ctx),
	}
	_ = s.Archive.ResetViewMonth(date)
	y, m := s.Archive.ViewMonth()
	monthRes, _ := s.Archive.LoadMonth(ctx, y, m)
	results = append(results, monthRes)

	localMode = !s.gw.RemoteConfigured()
	if localMode {
		s.log.Warn("remote store not configured, running in local mode")
	}
	return localMode, repository.Worst(results...)
}

// LocalMode reports whether no remote store is configured.
func (s *Session) LocalMode() bool { return !s.gw.RemoteConfigured() }
