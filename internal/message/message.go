// Package message defines the transport-agnostic logical messages the
// matching engine consumes and produces. Encoding to and from bytes is the
// job of the wire and csv packages; this package only knows about Go
// values.
package message

import "matchbook/internal/common"

// InputMessage is implemented by every message a client can send into the
// router: NewOrder, Cancel, Flush, QueryTopOfBook.
type InputMessage interface {
	inputMessage()
}

// OutputMessage is implemented by every event the router/book can emit:
// Ack, CancelAck, Trade, TopOfBook.
type OutputMessage interface {
	outputMessage()
}

// NewOrder requests a new market (Price == 0) or limit order.
type NewOrder struct {
	UserID      uint32
	UserOrderID uint32
	Symbol      string
	Price       uint32
	Quantity    uint32
	Side        common.Side
}

func (NewOrder) inputMessage() {}

// OrderType derives Market/Limit from Price, mirroring the invariant that
// OrderType == Market iff Price == 0.
func (n NewOrder) OrderType() common.OrderType {
	if n.Price == 0 {
		return common.Market
	}
	return common.Limit
}

// Cancel requests cancellation of a previously placed order.
type Cancel struct {
	UserID      uint32
	UserOrderID uint32
}

func (Cancel) inputMessage() {}

// Flush drops all books and router state. Carries no fields.
type Flush struct{}

func (Flush) inputMessage() {}

// QueryTopOfBook asks for a non-destructive snapshot of a symbol's book.
type QueryTopOfBook struct {
	Symbol string
}

func (QueryTopOfBook) inputMessage() {}

// Ack acknowledges a received NewOrder.
type Ack struct {
	UserID      uint32
	UserOrderID uint32
	Symbol      string
}

func (Ack) outputMessage() {}

// CancelAck acknowledges a Cancel request. Always emitted, even when the
// referenced order was never found (see router package).
type CancelAck struct {
	UserID      uint32
	UserOrderID uint32
	Symbol      string
}

func (CancelAck) outputMessage() {}

// Trade reports one fill between a buyer and a seller. Price is always the
// resting order's price; market orders never set the trade price.
type Trade struct {
	Symbol           string
	UserIDBuy        uint32
	UserOrderIDBuy   uint32
	UserIDSell       uint32
	UserOrderIDSell  uint32
	Price            uint32
	Quantity         uint32
}

func (Trade) outputMessage() {}

// TopOfBook reports the current (price, total quantity) for one side of a
// symbol's book, or that the side has been eliminated (gone empty).
type TopOfBook struct {
	Symbol        string
	Side          common.Side
	Price         uint32
	TotalQuantity uint32
	Eliminated    bool
}

func (TopOfBook) outputMessage() {}
