package model

import "time"

// DayStatus is the state of a business day.
type DayStatus string

const (
	DayClosed  DayStatus = "closed"  // no orders permitted
	DayOpen    DayStatus = "open"    // orders permitted, payments accrue
	DaySettled DayStatus = "settled" // archived; may be re-opened
)

// BusinessStatus is the businessStatus document for a single date.
// TotalSales always equals the sum of Payments[i].TotalPrice.
type BusinessStatus struct {
	Date       string          `json:"date"`
	Status     DayStatus       `json:"status"`
	Payments   []PaymentRecord `json:"payments"`
	TotalSales int64           `json:"totalSales"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
