// Package router implements the multi-symbol matching engine: it owns one
// book.Book per symbol (created lazily on first use) plus the cross-book
// (user_id, user_order_id) -> symbol index that cancels need to route,
// since a Cancel message carries no symbol of its own.
package router

import (
	"matchbook/internal/book"
	"matchbook/internal/common"
	"matchbook/internal/message"
)

const unknownSymbol = "<unknown>"

type orderKey struct {
	userID      uint32
	userOrderID uint32
}

// Router owns every symbol's book and dispatches input messages to them.
// It is not safe for concurrent use: a single goroutine owns the Router
// and all processing runs to completion before the next message is
// dequeued (see internal/netsrv).
type Router struct {
	books map[string]*book.Book
	index map[orderKey]string
}

// New returns an empty Router with no books.
func New() *Router {
	return &Router{
		books: make(map[string]*book.Book),
		index: make(map[orderKey]string),
	}
}

// Process dispatches one InputMessage and returns the resulting outputs,
// verbatim from whichever book handled it (or router-level fallbacks for
// Cancel/QueryTopOfBook against unknown symbols).
func (r *Router) Process(in message.InputMessage) []message.OutputMessage {
	switch m := in.(type) {
	case message.NewOrder:
		return r.processNewOrder(m)
	case message.Cancel:
		return r.processCancel(m)
	case message.Flush:
		r.processFlush()
		return nil
	case message.QueryTopOfBook:
		return r.processQuery(m)
	default:
		return nil
	}
}

func (r *Router) processNewOrder(m message.NewOrder) []message.OutputMessage {
	b := r.bookFor(m.Symbol)

	// Insert into the index before delegating to the book, so a cancel
	// arriving right after can always route even if the order is filled
	// before this call returns.
	r.index[orderKey{m.UserID, m.UserOrderID}] = m.Symbol

	return b.AddOrder(m)
}

func (r *Router) processCancel(m message.Cancel) []message.OutputMessage {
	key := orderKey{m.UserID, m.UserOrderID}

	symbol, ok := r.index[key]
	if !ok {
		// Unknown order: still acknowledge idempotently, but we have no
		// symbol to report.
		return []message.OutputMessage{
			message.CancelAck{UserID: m.UserID, UserOrderID: m.UserOrderID, Symbol: unknownSymbol},
		}
	}

	b, ok := r.books[symbol]
	if !ok {
		// Defensive: the index pointed at a symbol with no book. Should
		// not happen under the invariants, but don't panic.
		delete(r.index, key)
		return []message.OutputMessage{
			message.CancelAck{UserID: m.UserID, UserOrderID: m.UserOrderID, Symbol: symbol},
		}
	}

	delete(r.index, key)
	return b.CancelOrder(m.UserID, m.UserOrderID)
}

func (r *Router) processFlush() {
	r.books = make(map[string]*book.Book)
	r.index = make(map[orderKey]string)
}

func (r *Router) processQuery(m message.QueryTopOfBook) []message.OutputMessage {
	var bidPrice, bidQty, askPrice, askQty uint32

	if b, ok := r.books[m.Symbol]; ok {
		bidPrice, bidQty = b.BestBid()
		askPrice, askQty = b.BestAsk()
	}

	return []message.OutputMessage{
		topOfBookSnapshot(m.Symbol, common.Buy, bidPrice, bidQty),
		topOfBookSnapshot(m.Symbol, common.Sell, askPrice, askQty),
	}
}

// topOfBookSnapshot builds a non-destructive TopOfBook event for a query:
// it never touches a book's change-detection cache.
func topOfBookSnapshot(symbol string, side common.Side, price, qty uint32) message.TopOfBook {
	if price == 0 {
		return message.TopOfBook{Symbol: symbol, Side: side, Eliminated: true}
	}
	return message.TopOfBook{Symbol: symbol, Side: side, Price: price, TotalQuantity: qty}
}

func (r *Router) bookFor(symbol string) *book.Book {
	b, ok := r.books[symbol]
	if !ok {
		b = book.New(symbol)
		r.books[symbol] = b
	}
	return b
}
