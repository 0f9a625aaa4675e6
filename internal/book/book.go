// Package book implements a single-symbol limit order book with
// price-time priority matching and top-of-book change detection.
//
// Bids and asks are each kept in a tidwall/btree ordered by price: bids
// best-first descending, asks best-first ascending. Each price level is
// a FIFO queue of resting integer-tick orders.
package book

import (
	"math"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"

	"matchbook/internal/common"
	"matchbook/internal/message"
)

// levels is the ordered collection of PriceLevels for one side of a book.
type levels = btree.BTreeG[*PriceLevel]

// Book is the order book for a single symbol.
type Book struct {
	Symbol string

	bids *levels // best = highest price
	asks *levels // best = lowest price

	// Cached previous top-of-book, used solely for change detection.
	prevBidPrice uint32
	prevBidQty   uint32
	prevAskPrice uint32
	prevAskQty   uint32
}

func bidsLess(a, b *PriceLevel) bool { return a.Price > b.Price } // descending: best bid first
func asksLess(a, b *PriceLevel) bool { return a.Price < b.Price } // ascending: best ask first

// New creates an empty order book for symbol.
func New(symbol string) *Book {
	return &Book{
		Symbol: symbol,
		bids:   btree.NewBTreeG(bidsLess),
		asks:   btree.NewBTreeG(asksLess),
	}
}

// AddOrder accepts one incoming order and returns, in order:
// [Ack, Trade*, TopOfBook{bid}?, TopOfBook{ask}?].
func (b *Book) AddOrder(in message.NewOrder) []message.OutputMessage {
	order := &Order{
		UserID:       in.UserID,
		UserOrderID:  in.UserOrderID,
		Symbol:       in.Symbol,
		Price:        in.Price,
		Quantity:     in.Quantity,
		RemainingQty: in.Quantity,
		Side:         in.Side,
		OrderType:    in.OrderType(),
	}

	outputs := []message.OutputMessage{
		message.Ack{UserID: order.UserID, UserOrderID: order.UserOrderID, Symbol: b.Symbol},
	}

	outputs = append(outputs, b.match(order)...)

	// Residual Limit quantity rests; residual Market quantity is discarded
	// (no event beyond the Ack and any Trades already emitted).
	if order.RemainingQty > 0 && order.OrderType == common.Limit {
		b.rest(order)
	}

	outputs = append(outputs, b.checkTopOfBookChanges()...)
	return outputs
}

// CancelOrder removes the first resting order matching (userID, userOrderID)
// from either side. Always emits a CancelAck, even if nothing was found.
func (b *Book) CancelOrder(userID, userOrderID uint32) []message.OutputMessage {
	found := b.removeFromSide(b.bids, userID, userOrderID) ||
		b.removeFromSide(b.asks, userID, userOrderID)

	outputs := []message.OutputMessage{
		message.CancelAck{UserID: userID, UserOrderID: userOrderID, Symbol: b.Symbol},
	}
	if found {
		outputs = append(outputs, b.checkTopOfBookChanges()...)
	}
	return outputs
}

// Flush drops both sides and resets the top-of-book cache. Emits nothing.
func (b *Book) Flush() {
	b.bids = btree.NewBTreeG(bidsLess)
	b.asks = btree.NewBTreeG(asksLess)
	b.prevBidPrice, b.prevBidQty = 0, 0
	b.prevAskPrice, b.prevAskQty = 0, 0
}

// BestBid returns the best bid's (price, total quantity), zeros if empty.
func (b *Book) BestBid() (price, qty uint32) {
	lvl, ok := b.bids.Min()
	if !ok {
		return 0, 0
	}
	return lvl.Price, lvl.TotalQuantity()
}

// BestAsk returns the best ask's (price, total quantity), zeros if empty.
func (b *Book) BestAsk() (price, qty uint32) {
	lvl, ok := b.asks.Min()
	if !ok {
		return 0, 0
	}
	return lvl.Price, lvl.TotalQuantity()
}

// Bids returns resting price levels best-first (descending price). Intended
// for tests and diagnostics only.
func (b *Book) Bids() []*PriceLevel {
	return collect(b.bids)
}

// Asks returns resting price levels best-first (ascending price). Intended
// for tests and diagnostics only.
func (b *Book) Asks() []*PriceLevel {
	return collect(b.asks)
}

func collect(t *levels) []*PriceLevel {
	var out []*PriceLevel
	t.Scan(func(lvl *PriceLevel) bool {
		out = append(out, lvl)
		return true
	})
	return out
}

// match sweeps the opposite side of the book, filling order as far as
// eligibility and available liquidity allow, emitting one Trade per fill.
func (b *Book) match(order *Order) []message.OutputMessage {
	var outputs []message.OutputMessage

	var opposite *levels
	if order.Side == common.Buy {
		opposite = b.asks
	} else {
		opposite = b.bids
	}

	for order.RemainingQty > 0 {
		lvl, ok := opposite.Min()
		if !ok {
			break
		}
		if !eligible(order, lvl.Price) {
			break
		}

		for order.RemainingQty > 0 && !lvl.empty() {
			passive := lvl.front()
			tradeQty := order.RemainingQty
			if passive.RemainingQty < tradeQty {
				tradeQty = passive.RemainingQty
			}

			order.Fill(tradeQty)
			passive.Fill(tradeQty)

			outputs = append(outputs, b.tradeMessage(order, passive, lvl.Price, tradeQty))

			if passive.IsFilled() {
				lvl.popFront()
			}
		}

		if lvl.empty() {
			opposite.Delete(lvl)
		}
	}

	return outputs
}

// eligible reports whether order may match against a resting level priced
// at levelPrice: Market orders are always eligible; Limit orders require
// their limit to cross the resting price.
func eligible(order *Order, levelPrice uint32) bool {
	if order.OrderType == common.Market {
		return true
	}
	if order.Side == common.Buy {
		return order.Price >= levelPrice
	}
	return order.Price <= levelPrice
}

// maxAggregateQuantity bounds a single price level's total resting
// quantity. A level that would cross it on rest is left as-is and the
// order is dropped instead of risking a silent wraparound in
// PriceLevel.TotalQuantity's uint32 accumulator.
const maxAggregateQuantity = math.MaxUint32

func (b *Book) rest(order *Order) {
	var side *levels
	if order.Side == common.Buy {
		side = b.bids
	} else {
		side = b.asks
	}

	if lvl, ok := side.Get(&PriceLevel{Price: order.Price}); ok {
		if uint64(lvl.TotalQuantity())+uint64(order.RemainingQty) > maxAggregateQuantity {
			log.Warn().Str("symbol", b.Symbol).Uint32("price", order.Price).
				Msg("dropping order: would overflow price level aggregate quantity")
			return
		}
		lvl.pushBack(order)
		return
	}
	side.Set(&PriceLevel{Price: order.Price, Orders: []*Order{order}})
}

func (b *Book) removeFromSide(side *levels, userID, userOrderID uint32) bool {
	var empties []*PriceLevel
	found := false

	side.Scan(func(lvl *PriceLevel) bool {
		for i, o := range lvl.Orders {
			if o.UserID == userID && o.UserOrderID == userOrderID {
				lvl.removeAt(i)
				if lvl.empty() {
					empties = append(empties, lvl)
				}
				found = true
				return false
			}
		}
		return true
	})

	for _, lvl := range empties {
		side.Delete(lvl)
	}
	return found
}

// checkTopOfBookChanges compares the current top-of-book against the
// cached previous values, emits at most one event per changed side (bid
// then ask), and updates the cache after emitting.
func (b *Book) checkTopOfBookChanges() []message.OutputMessage {
	var outputs []message.OutputMessage

	bidPrice, bidQty := b.BestBid()
	if bidPrice != b.prevBidPrice || bidQty != b.prevBidQty {
		outputs = append(outputs, b.tobMessage(common.Buy, bidPrice, bidQty))
		b.prevBidPrice, b.prevBidQty = bidPrice, bidQty
	}

	askPrice, askQty := b.BestAsk()
	if askPrice != b.prevAskPrice || askQty != b.prevAskQty {
		outputs = append(outputs, b.tobMessage(common.Sell, askPrice, askQty))
		b.prevAskPrice, b.prevAskQty = askPrice, askQty
	}

	return outputs
}

// tradeMessage builds a Trade event, assigning buyer/seller fields from
// incoming and passive according to their sides. The trade price is
// always the resting (passive) order's price.
func (b *Book) tradeMessage(incoming, passive *Order, price, qty uint32) message.Trade {
	buyer, seller := incoming, passive
	if incoming.Side == common.Sell {
		buyer, seller = passive, incoming
	}
	return message.Trade{
		Symbol:          b.Symbol,
		UserIDBuy:       buyer.UserID,
		UserOrderIDBuy:  buyer.UserOrderID,
		UserIDSell:      seller.UserID,
		UserOrderIDSell: seller.UserOrderID,
		Price:           price,
		Quantity:        qty,
	}
}

func (b *Book) tobMessage(side common.Side, price, qty uint32) message.TopOfBook {
	if price == 0 {
		return message.TopOfBook{Symbol: b.Symbol, Side: side, Eliminated: true}
	}
	return message.TopOfBook{Symbol: b.Symbol, Side: side, Price: price, TotalQuantity: qty}
}
