package model

import "time"

// Order document statuses.  An active order is open on its seat; a held
// order was still unpaid when its day was settled and comes back as active
// when the day is restarted.
const (
	OrderStatusActive = "active"
	OrderStatusHeld   = "held"
)

// PaymentStatusPaid marks a settled order snapshot in payment history.
const PaymentStatusPaid = "paid"

// OrderLine is a value copy of a menu item taken when it was added to an
// order, plus the ordered quantity.
//
// Fields:
//  MenuID   – menu item the line was created from.
//  Name     – snapshot of the menu name at add time.
//  Price    – snapshot of the unit price at add time.
//  Quantity – number of units; a line never persists with zero.
type OrderLine struct {
	MenuID   string `json:"menuId"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Subtotal returns price × quantity for the line.
func (l OrderLine) Subtotal() int64 { return l.Price * int64(l.Quantity) }

// Order is the running bill of one seat on one business date.  At most one
// order exists per (Date, SeatID); its document id is OrderID(Date, SeatID).
type Order struct {
	ID         string      `json:"id"`         // "{date}_{seatId}"
	SeatID     string      `json:"seatId"`     // seat the order belongs to
	Date       string      `json:"date"`       // business date (YYYY-MM-DD)
	Items      []OrderLine `json:"items"`      // insertion order
	TotalPrice int64       `json:"totalPrice"` // Σ price × quantity
	Status     string      `json:"status"`     // always "active"
	UpdatedAt  time.Time   `json:"updatedAt"`  // last mutation
}

// OrderID builds the document id of the order for a seat on a date.
func OrderID(date, seatID string) string { return date + "_" + seatID }

// Recalculate recomputes TotalPrice from the lines and returns it.
func (o *Order) Recalculate() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.Subtotal()
	}
	o.TotalPrice = total
	return total
}

// IsEmpty reports whether the order has nothing billable on it.
func (o *Order) IsEmpty() bool { return len(o.Items) == 0 || o.TotalPrice == 0 }

// LineIndex returns the position of the line for menuID, or -1.
func (o *Order) LineIndex(menuID string) int {
	for i, it := range o.Items {
		if it.MenuID == menuID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers cannot mutate ledger state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = append([]OrderLine(nil), o.Items...)
	return &cp
}

// PaymentRecord is an immutable snapshot of an order at the moment it was
// paid.  Records are append-only: both the business status and the
// paymentHistory collection only ever gain new ones.
type PaymentRecord struct {
	ID         string      `json:"id"` // paymentHistory document id
	SeatID     string      `json:"seatId"`
	Date       string      `json:"date"`
	Items      []OrderLine `json:"items"`
	TotalPrice int64       `json:"totalPrice"`
	Status     string      `json:"status"` // "paid"
	UpdatedAt  time.Time   `json:"updatedAt"`
	PaidAt     time.Time   `json:"paidAt"`
	Time       string      `json:"time"` // "15:04" in the business zone
}
