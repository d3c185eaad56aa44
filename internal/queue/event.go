// Package queue defines the domain events published over RabbitMQ, the
// publisher that ships them and the consumer that writes the sales log.
package queue

// Routing keys double as durable queue names on the default exchange.
const (
	RoutePaymentCompleted = "pos.payment.completed"
	RouteDaySettled       = "pos.day.settled"
	RouteDayRolled        = "pos.day.rolled"
)

// Routes lists every queue the publisher and consumer declare.
var Routes = []string{RoutePaymentCompleted, RouteDaySettled, RouteDayRolled}

// PaymentCompletedEvent is published after a seat's order is paid.
type PaymentCompletedEvent struct {
	PaymentID string `json:"payment_id"`
	Date      string `json:"date"`
	SeatID    string `json:"seat_id"`
	SeatName  string `json:"seat_name"`
	Amount    int64  `json:"amount"`
	Items     int    `json:"items"` // total units on the bill
	PaidAt    string `json:"paid_at"`
}

// DaySettledEvent is published when a business day is settled and its
// daily summary archived.
type DaySettledEvent struct {
	Date        string `json:"date"`
	TotalSales  int64  `json:"total_sales"`
	TotalOrders int    `json:"total_orders"`
	SettledAt   string `json:"settled_at"`
}

// DayRolledEvent is published when the calendar date moved past the
// tracked business date.
type DayRolledEvent struct {
	Previous   string `json:"previous"`
	Current    string `json:"current"`
	DetectedAt string `json:"detected_at"`
}
