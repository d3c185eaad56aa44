package model

import "time"

// ItemSummary aggregates sold quantity and revenue for one menu item.
type ItemSummary struct {
	MenuID   string `json:"menuId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Total    int64  `json:"total"`
}

// SalePayment is the compact form of a payment kept in a daily summary.
type SalePayment struct {
	Time     string      `json:"time"`
	SeatID   string      `json:"seatId"`
	SeatName string      `json:"seatName"`
	Amount   int64       `json:"amount"`
	Items    []OrderLine `json:"items"`
}

// DailySales is the archived result of settling one business date.  It is
// written whole at settlement and only replaced by a later re-settlement
// or removed by an explicit delete.
type DailySales struct {
	Date        string        `json:"date"`
	TotalSales  int64         `json:"totalSales"`
	TotalOrders int           `json:"totalOrders"`
	Items       []ItemSummary `json:"items"`
	Payments    []SalePayment `json:"payments"`
	SettledAt   time.Time     `json:"settledAt"`
}

// SummarizeItems aggregates the lines of every payment by menu id,
// preserving first-seen order.
func SummarizeItems(payments []PaymentRecord) []ItemSummary {
	out := []ItemSummary{}
	idx := map[string]int{}
	for _, p := range payments {
		for _, it := range p.Items {
			i, ok := idx[it.MenuID]
			if !ok {
				i = len(out)
				idx[it.MenuID] = i
				out = append(out, ItemSummary{MenuID: it.MenuID, Name: it.Name})
			}
			out[i].Quantity += it.Quantity
			out[i].Total += it.Subtotal()
		}
	}
	return out
}
