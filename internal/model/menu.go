package model

import "time"

// MenuItem is a sellable product.  Order lines copy Name and Price when the
// item is added, so later edits here never change an open order.
type MenuItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Category  string    `json:"category"`
	Available bool      `json:"available"`
	Order     int       `json:"order"` // display position; lower first
	CreatedAt time.Time `json:"createdAt"`
}
