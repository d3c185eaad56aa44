package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/model"
	"github.com/iliyamo/seat-pos/internal/repository"
)

// SalesArchive stores one DailySales document per settled date and keeps
// the summaries of the month being viewed in memory.
type SalesArchive struct {
	gw    *repository.Gateway
	seats SeatLookup
	clock Clock
	log   *zap.Logger

	mu        sync.RWMutex
	cache     map[string]model.DailySales
	viewYear  int
	viewMonth int
}

// NewSalesArchive panics when gw is nil.  The view month starts at the
// clock's current month.
func NewSalesArchive(gw *repository.Gateway, seats SeatLookup, clock Clock, log *zap.Logger) *SalesArchive {
	if gw == nil {
		panic("nil gateway passed to NewSalesArchive")
	}
	if log == nil {
		log = zap.NewNop()
	}
	now := clock.Now()
	return &SalesArchive{
		gw: gw, seats: seats, clock: clock, log: log,
		cache:    map[string]model.DailySales{},
		viewYear: now.Year(), viewMonth: int(now.Month()),
	}
}

// Save archives the payments of date, replacing any earlier summary of the
// same date wholesale.
func (s *SalesArchive) Save(ctx context.Context, date string, payments []model.PaymentRecord, total int64) (model.DailySales, repository.Result) {
	compact := make([]model.SalePayment, 0, len(payments))
	for _, p := range payments {
		compact = append(compact, model.SalePayment{
			Time:     p.Time,
			SeatID:   p.SeatID,
			SeatName: seatName(s.seats, p.SeatID),
			Amount:   p.TotalPrice,
			Items:    append([]model.OrderLine{}, p.Items...),
		})
	}
	summary := model.DailySales{
		Date:        date,
		TotalSales:  total,
		TotalOrders: len(payments),
		Items:       model.SummarizeItems(payments),
		Payments:    compact,
		SettledAt:   s.clock.Now().UTC(),
	}
	res := s.gw.Write(ctx, repository.DailySales, repository.Key{ID: date, Date: date}, "", summary)

	s.mu.Lock()
	s.cache[date] = summary
	s.mu.Unlock()
	s.log.Info("daily sales archived",
		zap.String("date", date), zap.Int64("total", total), zap.Int("orders", summary.TotalOrders))
	return summary, res
}

// LoadMonth replaces the cached summaries of a month with the stored ones
// and makes it the viewed month.  On a failed query the cache is kept.
func (s *SalesArchive) LoadMonth(ctx context.Context, year, month int) (repository.Result, error) {
	if month < 1 || month > 12 {
		return repository.Result{}, fmt.Errorf("%w: month %d", ErrInvalidInput, month)
	}
	first, last := monthBounds(year, month)
	raws, res := s.gw.Query(ctx, repository.DailySales, repository.Filter{DateFrom: first, DateTo: last})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewYear, s.viewMonth = year, month
	if res.Failed() {
		return res, nil
	}
	prefix := monthPrefix(year, month)
	for d := range s.cache {
		if strings.HasPrefix(d, prefix) {
			delete(s.cache, d)
		}
	}
	for _, raw := range raws {
		var ds model.DailySales
		if err := json.Unmarshal(raw, &ds); err != nil {
			s.log.Warn("skip undecodable daily sales", zap.Error(err))
			continue
		}
		if !strings.HasPrefix(ds.Date, prefix) {
			continue
		}
		s.cache[ds.Date] = ds
	}
	return res, nil
}

func monthPrefix(year, month int) string { return fmt.Sprintf("%04d-%02d-", year, month) }

// GetByDate returns the summary of date from the cache, else from storage.
func (s *SalesArchive) GetByDate(ctx context.Context, date string) (*model.DailySales, repository.Result) {
	s.mu.RLock()
	ds, ok := s.cache[date]
	s.mu.RUnlock()
	if ok {
		return &ds, repository.Result{Outcome: repository.OutcomeOK, Source: repository.SourceCache}
	}
	var stored model.DailySales
	found, res := s.gw.Read(ctx, repository.DailySales, repository.Key{ID: date, Date: date}, &stored)
	if !found {
		return nil, res
	}
	return &stored, res
}

// DeleteByDate removes the summary of date.  The business status and the
// payment history of that date are untouched.
func (s *SalesArchive) DeleteByDate(ctx context.Context, date string) repository.Result {
	res := s.gw.Delete(ctx, repository.DailySales, repository.Key{ID: date, Date: date})
	s.mu.Lock()
	delete(s.cache, date)
	s.mu.Unlock()
	return res
}

// viewedLocked returns the cached summaries of the viewed month.
func (s *SalesArchive) viewedLocked() []model.DailySales {
	prefix := monthPrefix(s.viewYear, s.viewMonth)
	out := []model.DailySales{}
	for d, ds := range s.cache {
		if strings.HasPrefix(d, prefix) {
			out = append(out, ds)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// Month returns the viewed month's summaries, newest first.
func (s *SalesArchive) Month() []model.DailySales {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewedLocked()
}

// Dates lists the viewed month's settled dates, newest first.
func (s *SalesArchive) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, ds := range s.viewedLocked() {
		out = append(out, ds.Date)
	}
	return out
}

// MonthlyTotal sums the sales of the viewed month.
func (s *SalesArchive) MonthlyTotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, ds := range s.viewedLocked() {
		total += ds.TotalSales
	}
	return total
}

// MonthlyOrderCount sums the paid orders of the viewed month.
func (s *SalesArchive) MonthlyOrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ds := range s.viewedLocked() {
		n += ds.TotalOrders
	}
	return n
}

// ViewMonth returns the month cursor.
func (s *SalesArchive) ViewMonth() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewYear, s.viewMonth
}

// ShiftViewMonth moves the cursor by delta months and returns it.
func (s *SalesArchive) ShiftViewMonth(delta int) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := time.Date(s.viewYear, time.Month(s.viewMonth)+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	s.viewYear, s.viewMonth = t.Year(), int(t.Month())
	return s.viewYear, s.viewMonth
}

// ResetViewMonth points the cursor at the month of date.
func (s *SalesArchive) ResetViewMonth(date string) error {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidInput, date)
	}
	s.mu.Lock()
	s.viewYear, s.viewMonth = t.Year(), int(t.Month())
	s.mu.Unlock()
	return nil
}
