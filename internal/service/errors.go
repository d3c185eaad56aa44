package service

import "errors"

// ErrNotOpenForOrders is returned when an order or payment is attempted
// while the business day is not open.
var ErrNotOpenForOrders = errors.New("business day is not open for orders")

// ErrConfirmationDeclined is returned when the caller declines a risky
// operation, such as settling with unpaid orders.  Nothing was changed.
var ErrConfirmationDeclined = errors.New("confirmation declined")

// ErrInvalidTransition is returned when a business day operation is not
// allowed from the current status.
var ErrInvalidTransition = errors.New("invalid business day transition")

// ErrOrderNotFound is returned when a seat has no open order.
var ErrOrderNotFound = errors.New("order not found")

// ErrLineNotFound is returned when an order has no line for a menu item.
var ErrLineNotFound = errors.New("order line not found")

// ErrEmptyOrder is returned when paying an order with nothing billable on
// it.  Such an order must be discarded instead.
var ErrEmptyOrder = errors.New("order is empty")

// ErrInvalidQuantity is returned for quantities below one on add.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// ErrMenuNotFound is returned when a menu item id is unknown.
var ErrMenuNotFound = errors.New("menu item not found")

// ErrInvalidInput is returned for malformed names, prices or dates.
var ErrInvalidInput = errors.New("invalid input")
