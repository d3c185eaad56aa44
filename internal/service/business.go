package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/metrics"
	"github.com/iliyamo/seat-pos/internal/model"
	"github.com/iliyamo/seat-pos/internal/queue"
	"github.com/iliyamo/seat-pos/internal/repository"
)

// ConfirmFunc is asked before settling while unpaid orders worth pending
// are still open.  Returning false aborts the settlement.
type ConfirmFunc func(pending int64) bool

// pendingOrders is the part of the ledger settlement needs.
type pendingOrders interface {
	ActiveTotal() int64
	holdAll(ctx context.Context) repository.Result
	restoreHeld(ctx context.Context) repository.Result
}

// BusinessDay owns the status of the current business date:
//
//	closed --Start--> open --End--> settled --Restart--> open
//
// and the payments accrued while open.  Only open days accept orders.
type BusinessDay struct {
	gw      *repository.Gateway
	cal     *Calendar
	clock   Clock
	archive *SalesArchive
	events  Publisher
	log     *zap.Logger
	orders  pendingOrders

	mu    sync.Mutex
	state model.BusinessStatus
}

// NewBusinessDay panics when gw, cal or archive is nil.  The ledger is
// attached by the session once it exists.
func NewBusinessDay(gw *repository.Gateway, cal *Calendar, clock Clock, archive *SalesArchive, events Publisher, log *zap.Logger) *BusinessDay {
	if gw == nil || cal == nil || archive == nil {
		panic("nil dependency passed to NewBusinessDay")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BusinessDay{
		gw: gw, cal: cal, clock: clock, archive: archive, events: events, log: log,
		state: model.BusinessStatus{Date: cal.Date(), Status: model.DayClosed, Payments: []model.PaymentRecord{}},
	}
}

// Load restores the stored status of the calendar's date.  A date with no
// stored status starts closed.
func (b *BusinessDay) Load(ctx context.Context) repository.Result {
	date := b.cal.Date()
	var st model.BusinessStatus
	found, res := b.gw.Read(ctx, repository.BusinessStatus, repository.Key{ID: date, Date: date}, &st)
	if !found || st.Status == "" {
		st = model.BusinessStatus{Status: model.DayClosed}
	}
	st.Date = date
	if st.Payments == nil {
		st.Payments = []model.PaymentRecord{}
	}
	st.TotalSales = paymentsTotal(st.Payments)

	b.mu.Lock()
	b.state = st
	b.mu.Unlock()
	return res
}

func paymentsTotal(payments []model.PaymentRecord) int64 {
	var total int64
	for _, p := range payments {
		total += p.TotalPrice
	}
	return total
}

// Status returns the current day status.
func (b *BusinessDay) Status() model.DayStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Status
}

// IsOpen reports whether orders and payments are accepted.
func (b *BusinessDay) IsOpen() bool { return b.Status() == model.DayOpen }

// Snapshot returns a copy of the status document.
func (b *BusinessDay) Snapshot() model.BusinessStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *BusinessDay) snapshotLocked() model.BusinessStatus {
	st := b.state
	st.Payments = append([]model.PaymentRecord{}, b.state.Payments...)
	return st
}

// PendingTotal is the value of unpaid orders still open.
func (b *BusinessDay) PendingTotal() int64 {
	if b.orders == nil {
		return 0
	}
	return b.orders.ActiveTotal()
}

// saveLocked persists the status.  b.mu must be held.
func (b *BusinessDay) saveLocked(ctx context.Context) (model.BusinessStatus, repository.Result) {
	b.state.TotalSales = paymentsTotal(b.state.Payments)
	b.state.UpdatedAt = b.clock.Now().UTC()
	st := b.snapshotLocked()
	key := repository.Key{ID: st.Date, Date: st.Date}
	return st, b.gw.Write(ctx, repository.BusinessStatus, key, string(st.Status), st)
}

func (b *BusinessDay) transition(to model.DayStatus) {
	metrics.RecordTransition(string(to))
	b.log.Info("business day transition", zap.String("date", b.state.Date), zap.String("to", string(to)))
}

// Start opens a closed day with an empty payment list.
func (b *BusinessDay) Start(ctx context.Context) (model.BusinessStatus, repository.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Status != model.DayClosed {
		return b.snapshotLocked(), repository.Result{}, ErrInvalidTransition
	}
	b.state.Status = model.DayOpen
	b.state.Payments = []model.PaymentRecord{}
	st, res := b.saveLocked(ctx)
	b.transition(model.DayOpen)
	return st, res, nil
}

// AddPayment records a paid order.  Only the ledger calls it.
func (b *BusinessDay) AddPayment(ctx context.Context, rec model.PaymentRecord) (repository.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Status != model.DayOpen {
		return repository.Result{}, ErrNotOpenForOrders
	}
	b.state.Payments = append(b.state.Payments, rec)
	_, res := b.saveLocked(ctx)
	return res, nil
}

// End settles an open day.  With unpaid orders still open confirm decides;
// declining returns ErrConfirmationDeclined and changes nothing.  After
// settlement leftover orders are held out of the ledger and the day's
// payments are archived as its daily sales.
func (b *BusinessDay) End(ctx context.Context, confirm ConfirmFunc) (model.BusinessStatus, repository.Result, error) {
	b.mu.Lock()
	if b.state.Status != model.DayOpen {
		st := b.snapshotLocked()
		b.mu.Unlock()
		return st, repository.Result{}, ErrInvalidTransition
	}
	if pending := b.PendingTotal(); pending > 0 && (confirm == nil || !confirm(pending)) {
		st := b.snapshotLocked()
		b.mu.Unlock()
		return st, repository.Result{}, ErrConfirmationDeclined
	}
	b.state.Status = model.DaySettled
	st, res := b.saveLocked(ctx)
	b.transition(model.DaySettled)
	b.mu.Unlock()

	results := []repository.Result{res}
	if b.orders != nil {
		results = append(results, b.orders.holdAll(ctx))
	}
	summary, archRes := b.archive.Save(ctx, st.Date, st.Payments, st.TotalSales)
	results = append(results, archRes)

	publish(ctx, b.events, b.log, queue.RouteDaySettled, queue.DaySettledEvent{
		Date:        summary.Date,
		TotalSales:  summary.TotalSales,
		TotalOrders: summary.TotalOrders,
		SettledAt:   summary.SettledAt.Format(time.RFC3339),
	})
	return st, repository.Worst(results...), nil
}

// Restart re-opens a settled day, keeping its payments and bringing back
// the orders that were held at settlement.  The archived daily sales are
// left as they are until the next settlement.
func (b *BusinessDay) Restart(ctx context.Context) (model.BusinessStatus, repository.Result, error) {
	b.mu.Lock()
	if b.state.Status != model.DaySettled {
		st := b.snapshotLocked()
		b.mu.Unlock()
		return st, repository.Result{}, ErrInvalidTransition
	}
	b.state.Status = model.DayOpen
	st, res := b.saveLocked(ctx)
	b.transition(model.DayOpen)
	b.mu.Unlock()

	if b.orders != nil {
		res = repository.Worst(res, b.orders.restoreHeld(ctx))
	}
	return st, res, nil
}

// ResetForNewDay forces a closed, empty status for date and stores it under
// that date.  Only the rollover monitor calls it.
func (b *BusinessDay) ResetForNewDay(ctx context.Context, date string) repository.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = model.BusinessStatus{Date: date, Status: model.DayClosed, Payments: []model.PaymentRecord{}}
	_, res := b.saveLocked(ctx)
	b.transition(model.DayClosed)
	return res
}

// TodayItemsSummary aggregates today's paid lines by menu item.
func (b *BusinessDay) TodayItemsSummary() []model.ItemSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return model.SummarizeItems(b.state.Payments)
}
