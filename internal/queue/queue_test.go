package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestPublish_BuffersUntilFull(t *testing.T) {
	p := NewPublisher("amqp://unused", 2, nil)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, RouteDaySettled, DaySettledEvent{Date: "2024-02-09", TotalSales: 18000, TotalOrders: 2}))
	require.NoError(t, p.Publish(ctx, RouteDayRolled, DayRolledEvent{Previous: "2024-02-09", Current: "2024-02-10"}))
	assert.ErrorIs(t, p.Publish(ctx, RouteDayRolled, DayRolledEvent{}), ErrQueueFull)

	first := <-p.out
	assert.Equal(t, RouteDaySettled, first.key)
	assert.Equal(t, int64(18000), gjson.GetBytes(first.body, "total_sales").Int())
}

func TestPublish_RejectsUnencodable(t *testing.T) {
	p := NewPublisher("amqp://unused", 1, nil)
	assert.Error(t, p.Publish(context.Background(), RouteDayRolled, make(chan int)))
	assert.Len(t, p.out, 0)
}

func TestFormatEvent(t *testing.T) {
	body, err := json.Marshal(PaymentCompletedEvent{
		PaymentID: "p1", Date: "2024-02-09", SeatID: "A", SeatName: "Window 1",
		Amount: 15000, Items: 3, PaidAt: "2024-02-09T12:00:00Z",
	})
	require.NoError(t, err)
	line, err := FormatEvent(RoutePaymentCompleted, body)
	require.NoError(t, err)
	assert.Equal(t, "[2024-02-09T12:00:00Z] Payment completed | payment_id=p1 | date=2024-02-09 | seat=\"Window 1\" | items=3 | amount=15000\n", line)

	_, err = FormatEvent("pos.unknown", body)
	assert.Error(t, err)
	_, err = FormatEvent(RouteDaySettled, []byte("{"))
	assert.Error(t, err)
}

func TestSalesLog_AppendsLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	log := NewSalesLog(dir)

	settled, _ := json.Marshal(DaySettledEvent{Date: "2024-02-09", TotalSales: 8000, TotalOrders: 2, SettledAt: "t1"})
	rolled, _ := json.Marshal(DayRolledEvent{Previous: "2024-02-09", Current: "2024-02-10", DetectedAt: "t2"})
	require.NoError(t, log.Handle(RouteDaySettled, settled))
	require.NoError(t, log.Handle(RouteDayRolled, rolled))
	assert.Error(t, log.Handle("pos.unknown", rolled))

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Equal(t,
		"[t1] Day settled | date=2024-02-09 | orders=2 | total=8000\n"+
			"[t2] Day rolled over | from=2024-02-09 | to=2024-02-10\n",
		string(data))

	assert.Equal(t, filepath.Join("logs", "sales.log"), NewSalesLog("").Path())
}
