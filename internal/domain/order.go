package domain

// FIX-style field values used on the wire and in storage.
const (
	SideBuy  = "1"
	SideSell = "2"

	OrderTypeMarket = "1"
	OrderTypeLimit  = "2"

	OrderStatusNew             = "0"
	OrderStatusPartiallyFilled = "1"
	OrderStatusFilled          = "2"
	OrderStatusCanceled        = "4"
	OrderStatusRejected        = "8"
)

// IsOpen checks if the order is still active.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled
}

// IsBuy reports whether the order is on the buy side.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}
