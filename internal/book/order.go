package book

import "matchbook/internal/common"

// Order is the engine's internal representation of a resting or active
// order. It is never serialized directly onto the wire; Book.AddOrder
// builds it from a logical message.NewOrder.
type Order struct {
	UserID      uint32
	UserOrderID uint32
	Symbol      string

	Price        uint32 // 0 means Market
	Quantity     uint32 // original quantity
	RemainingQty uint32 // unfilled quantity remaining

	Side      common.Side
	OrderType common.OrderType

	// TimestampNs is informational only; FIFO insertion order into a
	// PriceLevel is what actually establishes time priority.
	TimestampNs uint64
}

// Fill reduces RemainingQty by up to qty and returns the quantity actually
// filled (min(qty, RemainingQty)).
func (o *Order) Fill(qty uint32) uint32 {
	filled := qty
	if o.RemainingQty < filled {
		filled = o.RemainingQty
	}
	o.RemainingQty -= filled
	return filled
}

// IsFilled reports whether the order has no quantity left.
func (o *Order) IsFilled() bool {
	return o.RemainingQty == 0
}
