package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/metrics"
	"github.com/iliyamo/seat-pos/internal/model"
	"github.com/iliyamo/seat-pos/internal/queue"
	"github.com/iliyamo/seat-pos/internal/repository"
)

// dayGate is what the ledger needs from the business day: whether orders
// are allowed and where paid orders go.
type dayGate interface {
	IsOpen() bool
	AddPayment(ctx context.Context, rec model.PaymentRecord) (repository.Result, error)
}

// OrderLedger holds the open orders of the current business date, at most
// one per seat.  Mutations on the same seat are serialized and persisted
// before the next one starts, so the stored order always matches memory.
type OrderLedger struct {
	gw     *repository.Gateway
	clock  Clock
	day    dayGate
	seats  SeatLookup
	events Publisher
	log    *zap.Logger

	mu     sync.RWMutex
	date   string
	orders map[string]*model.Order

	locksMu   sync.Mutex
	seatLocks map[string]*sync.Mutex

	// gate is held shared by every mutation and exclusively by pause.
	gate sync.RWMutex
}

// NewOrderLedger panics when gw, cal or day is nil.  The ledger starts
// empty on the calendar's date; Load fills it.
func NewOrderLedger(gw *repository.Gateway, cal *Calendar, clock Clock, day dayGate, seats SeatLookup, events Publisher, log *zap.Logger) *OrderLedger {
	if gw == nil || cal == nil || day == nil {
		panic("nil dependency passed to NewOrderLedger")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderLedger{
		gw:        gw,
		clock:     clock,
		day:       day,
		seats:     seats,
		events:    events,
		log:       log,
		date:      cal.Date(),
		orders:    map[string]*model.Order{},
		seatLocks: map[string]*sync.Mutex{},
	}
}

// pause waits for in-flight mutations and blocks new ones until the
// returned func is called.  The rollover cascade runs inside it so no
// order is written under a date that is being replaced.
func (l *OrderLedger) pause() func() {
	l.gate.Lock()
	return l.gate.Unlock
}

func (l *OrderLedger) lockSeat(seatID string) func() {
	l.locksMu.Lock()
	m, ok := l.seatLocks[seatID]
	if !ok {
		m = &sync.Mutex{}
		l.seatLocks[seatID] = m
	}
	l.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// Load replaces the ledger with the active orders stored for date.
func (l *OrderLedger) Load(ctx context.Context, date string) repository.Result {
	raws, res := l.gw.Query(ctx, repository.Orders, repository.Filter{
		DateFrom: date, DateTo: date, Status: model.OrderStatusActive,
	})
	orders := make(map[string]*model.Order, len(raws))
	for _, raw := range raws {
		var o model.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			l.log.Warn("skip undecodable order", zap.String("date", date), zap.Error(err))
			continue
		}
		if o.SeatID == "" || o.Date != date {
			continue
		}
		o.Recalculate()
		orders[o.SeatID] = &o
	}

	l.mu.Lock()
	l.date = date
	l.orders = orders
	l.mu.Unlock()
	return res
}

// Date returns the business date the ledger was loaded for.
func (l *OrderLedger) Date() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.date
}

// AddItem adds quantity units of item to the seat's order, creating the
// order on first add.  Name and price are copied from item at this moment.
func (l *OrderLedger) AddItem(ctx context.Context, seatID string, item model.MenuItem, quantity int) (*model.Order, repository.Result, error) {
	l.gate.RLock()
	defer l.gate.RUnlock()
	if quantity < 1 {
		return nil, repository.Result{}, ErrInvalidQuantity
	}
	if !l.day.IsOpen() {
		return nil, repository.Result{}, ErrNotOpenForOrders
	}
	unlock := l.lockSeat(seatID)
	defer unlock()

	l.mu.Lock()
	o, ok := l.orders[seatID]
	if !ok {
		o = &model.Order{
			ID:     model.OrderID(l.date, seatID),
			SeatID: seatID,
			Date:   l.date,
			Items:  []model.OrderLine{},
			Status: model.OrderStatusActive,
		}
		l.orders[seatID] = o
	}
	if i := o.LineIndex(item.ID); i >= 0 {
		o.Items[i].Quantity += quantity
	} else {
		o.Items = append(o.Items, model.OrderLine{
			MenuID: item.ID, Name: item.Name, Price: item.Price, Quantity: quantity,
		})
	}
	o.Recalculate()
	o.UpdatedAt = l.clock.Now().UTC()
	snap := o.Clone()
	l.mu.Unlock()

	res := l.persist(ctx, snap)
	return snap, res, nil
}

// SetItemQuantity sets the quantity of one line.  A quantity of zero or
// less removes the line; an order left without lines is deleted from
// storage and stays in memory only until it is discarded.
func (l *OrderLedger) SetItemQuantity(ctx context.Context, seatID, menuID string, quantity int) (*model.Order, repository.Result, error) {
	l.gate.RLock()
	defer l.gate.RUnlock()
	if !l.day.IsOpen() {
		return nil, repository.Result{}, ErrNotOpenForOrders
	}
	unlock := l.lockSeat(seatID)
	defer unlock()

	l.mu.Lock()
	o, ok := l.orders[seatID]
	if !ok {
		l.mu.Unlock()
		return nil, repository.Result{}, ErrOrderNotFound
	}
	i := o.LineIndex(menuID)
	if i < 0 {
		l.mu.Unlock()
		return nil, repository.Result{}, ErrLineNotFound
	}
	if quantity <= 0 {
		o.Items = append(o.Items[:i], o.Items[i+1:]...)
	} else {
		o.Items[i].Quantity = quantity
	}
	o.Recalculate()
	o.UpdatedAt = l.clock.Now().UTC()
	snap := o.Clone()
	l.mu.Unlock()

	res := l.persist(ctx, snap)
	return snap, res, nil
}

// persist writes a non-empty order and deletes an empty one.
func (l *OrderLedger) persist(ctx context.Context, o *model.Order) repository.Result {
	key := repository.Key{ID: o.ID, Date: o.Date}
	if len(o.Items) == 0 {
		return l.gw.Delete(ctx, repository.Orders, key)
	}
	return l.gw.Write(ctx, repository.Orders, key, o.Status, o)
}

// CompletePayment settles the seat's order: the snapshot is handed to the
// business day, appended to payment history and the order is deleted.
// Paying a seat without an order returns ErrOrderNotFound; an order with
// nothing billable returns ErrEmptyOrder and must be discarded instead.
func (l *OrderLedger) CompletePayment(ctx context.Context, seatID string) (model.PaymentRecord, repository.Result, error) {
	l.gate.RLock()
	defer l.gate.RUnlock()
	unlock := l.lockSeat(seatID)
	defer unlock()

	l.mu.RLock()
	o, ok := l.orders[seatID]
	var snap *model.Order
	if ok {
		snap = o.Clone()
	}
	l.mu.RUnlock()
	if !ok {
		return model.PaymentRecord{}, repository.Result{}, ErrOrderNotFound
	}
	if snap.IsEmpty() {
		return model.PaymentRecord{}, repository.Result{}, ErrEmptyOrder
	}

	now := l.clock.Now()
	rec := model.PaymentRecord{
		ID:         uuid.NewString(),
		SeatID:     snap.SeatID,
		Date:       snap.Date,
		Items:      snap.Items,
		TotalPrice: snap.TotalPrice,
		Status:     model.PaymentStatusPaid,
		UpdatedAt:  snap.UpdatedAt,
		PaidAt:     now.UTC(),
		Time:       now.Format("15:04"),
	}
	dayRes, err := l.day.AddPayment(ctx, rec)
	if err != nil {
		return model.PaymentRecord{}, dayRes, err
	}

	histRes := l.gw.Write(ctx, repository.PaymentHistory, repository.Key{ID: rec.ID, Date: rec.Date}, rec.Status, rec)
	delRes := l.gw.Delete(ctx, repository.Orders, repository.Key{ID: snap.ID, Date: snap.Date})

	l.mu.Lock()
	delete(l.orders, seatID)
	l.mu.Unlock()

	metrics.RecordPayment(rec.TotalPrice)
	units := 0
	for _, it := range rec.Items {
		units += it.Quantity
	}
	publish(ctx, l.events, l.log, queue.RoutePaymentCompleted, queue.PaymentCompletedEvent{
		PaymentID: rec.ID,
		Date:      rec.Date,
		SeatID:    rec.SeatID,
		SeatName:  seatName(l.seats, rec.SeatID),
		Amount:    rec.TotalPrice,
		Items:     units,
		PaidAt:    rec.PaidAt.Format(time.RFC3339),
	})
	l.log.Info("payment completed",
		zap.String("seat_id", rec.SeatID), zap.String("date", rec.Date), zap.Int64("amount", rec.TotalPrice))

	return rec, repository.Worst(dayRes, delRes, histRes), nil
}

// Discard drops the seat's order without recording a payment.
func (l *OrderLedger) Discard(ctx context.Context, seatID string) (repository.Result, error) {
	l.gate.RLock()
	defer l.gate.RUnlock()
	unlock := l.lockSeat(seatID)
	defer unlock()

	l.mu.Lock()
	o, ok := l.orders[seatID]
	if ok {
		delete(l.orders, seatID)
	}
	l.mu.Unlock()
	if !ok {
		return repository.Result{}, ErrOrderNotFound
	}
	return l.gw.Delete(ctx, repository.Orders, repository.Key{ID: o.ID, Date: o.Date}), nil
}

// holdAll empties the ledger.  Billable orders are stored as held so a
// restart can bring them back; emptied ones are deleted.  Seat locks are
// not taken: callers have already closed the day, so no new mutation can
// start.
func (l *OrderLedger) holdAll(ctx context.Context) repository.Result {
	l.mu.Lock()
	orders := l.orders
	l.orders = map[string]*model.Order{}
	l.mu.Unlock()

	results := make([]repository.Result, 0, len(orders))
	held := 0
	for _, o := range orders {
		key := repository.Key{ID: o.ID, Date: o.Date}
		if len(o.Items) == 0 {
			results = append(results, l.gw.Delete(ctx, repository.Orders, key))
			continue
		}
		o.Status = model.OrderStatusHeld
		o.UpdatedAt = l.clock.Now().UTC()
		results = append(results, l.gw.Write(ctx, repository.Orders, key, o.Status, o))
		held++
	}
	if held > 0 {
		l.log.Info("held unpaid orders at settlement", zap.Int("count", held))
	}
	return repository.Worst(results...)
}

// restoreHeld reactivates the orders held when the ledger's day was
// settled.  A seat that already has an open order keeps it.
func (l *OrderLedger) restoreHeld(ctx context.Context) repository.Result {
	date := l.Date()
	raws, res := l.gw.Query(ctx, repository.Orders, repository.Filter{
		DateFrom: date, DateTo: date, Status: model.OrderStatusHeld,
	})
	results := []repository.Result{res}
	restored := 0
	for _, raw := range raws {
		var o model.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			l.log.Warn("skip undecodable held order", zap.String("date", date), zap.Error(err))
			continue
		}
		if o.SeatID == "" || o.Date != date {
			continue
		}
		unlock := l.lockSeat(o.SeatID)
		l.mu.Lock()
		_, taken := l.orders[o.SeatID]
		if !taken {
			o.Status = model.OrderStatusActive
			o.UpdatedAt = l.clock.Now().UTC()
			o.Recalculate()
			l.orders[o.SeatID] = &o
		}
		l.mu.Unlock()
		if !taken {
			results = append(results, l.persist(ctx, &o))
			restored++
		}
		unlock()
	}
	if restored > 0 {
		l.log.Info("restored held orders", zap.String("date", date), zap.Int("count", restored))
	}
	return repository.Worst(results...)
}

// ActiveTotal sums the totals of every billable open order.
func (l *OrderLedger) ActiveTotal() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total int64
	for _, o := range l.orders {
		if !o.IsEmpty() {
			total += o.TotalPrice
		}
	}
	return total
}

// HasActive reports whether any seat has a billable open order.
func (l *OrderLedger) HasActive() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, o := range l.orders {
		if !o.IsEmpty() {
			return true
		}
	}
	return false
}

// Get returns a copy of the seat's order.
func (l *OrderLedger) Get(seatID string) (*model.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[seatID]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Snapshot returns copies of every open order sorted by seat id.
func (l *OrderLedger) Snapshot() []*model.Order {
	l.mu.RLock()
	out := make([]*model.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o.Clone())
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out
}
