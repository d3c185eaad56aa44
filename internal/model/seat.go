package model

import "time"

// Seat describes a table or counter position on the floor plan.  Orders
// reference a seat only by its ID; the registry owns the seat itself.
//
// Fields:
//  ID   – stable identifier (e.g. "seat_1707440000000").
//  Name – label shown to staff ("A1", "Bar 2").
//  X, Y – position on the layout canvas in pixels.
type Seat struct {
	ID   string `json:"id"`   // seats[].id
	Name string `json:"name"` // seats[].name
	X    int    `json:"x"`    // seats[].x
	Y    int    `json:"y"`    // seats[].y
}

// SeatConfig is the persisted layout for one business date.  A new date
// with no config of its own falls back to the most recently saved one.
type SeatConfig struct {
	Date      string    `json:"date"`      // seatConfigs document id
	Seats     []Seat    `json:"seats"`     // ordered layout
	CreatedAt time.Time `json:"createdAt"` // used to find the latest config
}
