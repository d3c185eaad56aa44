package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-pos/internal/model"
	"github.com/iliyamo/seat-pos/internal/queue"
	"github.com/iliyamo/seat-pos/internal/repository"
)

func TestBusinessDay_Transitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	d := h.sess.Day

	assert.Equal(t, model.DayClosed, d.Status())
	_, _, err := d.End(ctx, confirmYes)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, _, err = d.Restart(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	st, res, err := d.Start(ctx)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, model.DayOpen, st.Status)
	_, _, err = d.Start(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	st, _, err = d.End(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DaySettled, st.Status)
	_, _, err = d.Start(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	st, _, err = d.Restart(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DayOpen, st.Status)
}

func TestBusinessDay_StartResetsRestartKeeps(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	h.open(t)

	_, _, err := h.sess.Ledger.AddItem(ctx, "A", coffee, 1)
	require.NoError(t, err)
	_, _, err = h.sess.Ledger.CompletePayment(ctx, "A")
	require.NoError(t, err)
	_, _, err = h.sess.Day.End(ctx, nil)
	require.NoError(t, err)

	st, _, err := h.sess.Day.Restart(ctx)
	require.NoError(t, err)
	assert.Len(t, st.Payments, 1)
	assert.Equal(t, int64(5000), st.TotalSales)

	// a fresh day for the same date starts from nothing
	h.sess.Day.ResetForNewDay(ctx, "2024-02-09")
	st, _, err = h.sess.Day.Start(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Payments)
	assert.Equal(t, int64(0), st.TotalSales)
}

func TestBusinessDay_EndDeclinedWithPendingOrders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	h.open(t)

	_, _, err := h.sess.Ledger.AddItem(ctx, "A", coffee, 2)
	require.NoError(t, err)

	var asked int64
	st, _, err := h.sess.Day.End(ctx, func(p int64) bool { asked = p; return false })
	assert.ErrorIs(t, err, ErrConfirmationDeclined)
	assert.Equal(t, int64(10000), asked)
	assert.Equal(t, model.DayOpen, st.Status)
	assert.Equal(t, model.DayOpen, h.sess.Day.Status())
	_, ok := h.sess.Ledger.Get("A")
	assert.True(t, ok)

	_, _, err = h.sess.Day.End(ctx, nil)
	assert.ErrorIs(t, err, ErrConfirmationDeclined)

	_, err = h.remote.Get(ctx, "dailySales", "2024-02-09")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBusinessDay_EndWithoutPendingNeedsNoConfirmation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	h.open(t)

	// an emptied order has no value and does not trigger confirmation
	_, _, err := h.sess.Ledger.AddItem(ctx, "A", coffee, 1)
	require.NoError(t, err)
	_, _, err = h.sess.Ledger.SetItemQuantity(ctx, "A", coffee.ID, 0)
	require.NoError(t, err)

	_, _, err = h.sess.Day.End(ctx, confirmNo)
	require.NoError(t, err)
	assert.Equal(t, model.DaySettled, h.sess.Day.Status())
}

func TestBusinessDay_EndAcceptedArchivesSales(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	_, _, err := h.sess.Seats.Save(ctx, []model.Seat{{ID: "A", Name: "Window 1"}})
	require.NoError(t, err)
	h.open(t)
	l := h.sess.Ledger

	_, _, err = l.AddItem(ctx, "A", coffee, 2)
	require.NoError(t, err)
	_, _, err = l.AddItem(ctx, "A", cake, 1)
	require.NoError(t, err)
	_, _, err = l.CompletePayment(ctx, "A")
	require.NoError(t, err)
	_, _, err = l.AddItem(ctx, "Z", coffee, 1)
	require.NoError(t, err)
	_, _, err = l.CompletePayment(ctx, "Z")
	require.NoError(t, err)
	_, _, err = l.AddItem(ctx, "A", tea, 1)
	require.NoError(t, err)

	st, res, err := h.sess.Day.End(ctx, confirmYes)
	require.NoError(t, err)
	assert.True(t, res.OK(), res.Err())
	assert.Equal(t, model.DaySettled, st.Status)
	assert.Equal(t, int64(18000), st.TotalSales)

	ds, _ := h.sess.Archive.GetByDate(ctx, "2024-02-09")
	require.NotNil(t, ds)
	assert.Equal(t, st.TotalSales, ds.TotalSales)
	assert.Equal(t, 2, ds.TotalOrders)
	require.Len(t, ds.Payments, 2)
	assert.Equal(t, "Window 1", ds.Payments[0].SeatName)
	assert.Equal(t, "Z", ds.Payments[1].SeatName)
	assert.Equal(t, []model.ItemSummary{
		{MenuID: "m_coffee", Name: "Coffee", Quantity: 3, Total: 15000},
		{MenuID: "m_cake", Name: "Cake", Quantity: 1, Total: 3000},
	}, ds.Items)

	assert.False(t, h.sess.Ledger.HasActive())
	assert.Contains(t, h.events.routingKeys(), queue.RouteDaySettled)

	// the unpaid order is kept out of the ledger as held
	doc, err := h.remote.Get(ctx, "orders", "2024-02-09_A")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusHeld, doc.Status)
	fresh := NewSession(Deps{Gateway: h.gw, Clock: h.clock})
	fresh.Ledger.Load(ctx, "2024-02-09")
	assert.Empty(t, fresh.Ledger.Snapshot())

	// reopening leaves the archived summary untouched
	_, _, err = h.sess.Day.Restart(ctx)
	require.NoError(t, err)
	ds, _ = h.sess.Archive.GetByDate(ctx, "2024-02-09")
	assert.Equal(t, int64(18000), ds.TotalSales)
}

func TestBusinessDay_RestartBringsBackHeldOrders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	h.open(t)
	l := h.sess.Ledger

	_, _, err := l.AddItem(ctx, "A", coffee, 2)
	require.NoError(t, err)
	_, _, err = l.AddItem(ctx, "B", cake, 1)
	require.NoError(t, err)
	_, _, err = l.SetItemQuantity(ctx, "B", cake.ID, 0)
	require.NoError(t, err)

	_, _, err = h.sess.Day.End(ctx, confirmYes)
	require.NoError(t, err)
	_, ok := l.Get("A")
	assert.False(t, ok)
	assert.Zero(t, l.ActiveTotal())

	st, res, err := h.sess.Day.Restart(ctx)
	require.NoError(t, err)
	assert.True(t, res.OK(), res.Err())
	assert.Equal(t, model.DayOpen, st.Status)

	o, ok := l.Get("A")
	require.True(t, ok)
	assert.Equal(t, int64(10000), o.TotalPrice)
	assert.Equal(t, model.OrderStatusActive, o.Status)
	assert.Equal(t, int64(10000), l.ActiveTotal())
	_, ok = l.Get("B")
	assert.False(t, ok, "emptied orders are not held")

	doc, err := h.remote.Get(ctx, "orders", "2024-02-09_A")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusActive, doc.Status)

	// the restored order can be paid like any other
	_, _, err = l.CompletePayment(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), h.sess.Day.Snapshot().TotalSales)
}

func TestBusinessDay_HeldOrdersSurviveOffline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	h.open(t)
	_, _, err := h.sess.Ledger.AddItem(ctx, "A", tea, 1)
	require.NoError(t, err)

	h.remote.setDown(true)
	_, res, err := h.sess.Day.End(ctx, confirmYes)
	require.NoError(t, err)
	assert.Equal(t, repository.OutcomeDegraded, res.Outcome)

	_, _, err = h.sess.Day.Restart(ctx)
	require.NoError(t, err)
	o, ok := h.sess.Ledger.Get("A")
	require.True(t, ok)
	assert.Equal(t, tea.Price, o.TotalPrice)
}

func TestBusinessDay_ResettleOverwritesSummary(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	h.open(t)

	_, _, err := h.sess.Ledger.AddItem(ctx, "A", coffee, 1)
	require.NoError(t, err)
	_, _, err = h.sess.Ledger.CompletePayment(ctx, "A")
	require.NoError(t, err)
	_, _, err = h.sess.Day.End(ctx, nil)
	require.NoError(t, err)

	_, _, err = h.sess.Day.Restart(ctx)
	require.NoError(t, err)
	_, _, err = h.sess.Ledger.AddItem(ctx, "B", cake, 1)
	require.NoError(t, err)
	_, _, err = h.sess.Ledger.CompletePayment(ctx, "B")
	require.NoError(t, err)
	_, _, err = h.sess.Day.End(ctx, nil)
	require.NoError(t, err)

	fresh := NewSession(Deps{Gateway: h.gw, Clock: h.clock})
	ds, _ := fresh.Archive.GetByDate(ctx, "2024-02-09")
	require.NotNil(t, ds)
	assert.Equal(t, int64(8000), ds.TotalSales)
	assert.Equal(t, 2, ds.TotalOrders)
}

func TestBusinessDay_LoadRestoresStoredStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	h.open(t)
	_, _, err := h.sess.Ledger.AddItem(ctx, "A", coffee, 1)
	require.NoError(t, err)
	_, _, err = h.sess.Ledger.CompletePayment(ctx, "A")
	require.NoError(t, err)

	fresh := NewSession(Deps{Gateway: h.gw, Clock: h.clock})
	assert.Equal(t, model.DayClosed, fresh.Day.Status())
	fresh.Day.Load(ctx)
	st := fresh.Day.Snapshot()
	assert.Equal(t, model.DayOpen, st.Status)
	assert.Equal(t, int64(5000), st.TotalSales)
	assert.Equal(t, "2024-02-09", st.Date)

	other := newHarness(t, "2024-03-01")
	other.sess.Day.Load(ctx)
	assert.Equal(t, model.DayClosed, other.sess.Day.Status())
}

func TestBusinessDay_TodayItemsSummary(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-09")
	h.open(t)
	for _, seat := range []string{"A", "B"} {
		_, _, err := h.sess.Ledger.AddItem(ctx, seat, tea, 2)
		require.NoError(t, err)
		_, _, err = h.sess.Ledger.CompletePayment(ctx, seat)
		require.NoError(t, err)
	}
	assert.Equal(t, []model.ItemSummary{{MenuID: "m_tea", Name: "Tea", Quantity: 4, Total: 18000}},
		h.sess.Day.TodayItemsSummary())
}
