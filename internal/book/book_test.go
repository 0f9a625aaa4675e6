package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/common"
	"matchbook/internal/message"
)

func newOrder(user, userOrder, price, qty uint32, side common.Side) message.NewOrder {
	return message.NewOrder{
		UserID:      user,
		UserOrderID: userOrder,
		Symbol:      "AAPL",
		Price:       price,
		Quantity:    qty,
		Side:        side,
	}
}

func TestAddOrder_RestsAloneEmitsAckAndTOB(t *testing.T) {
	b := New("AAPL")

	outputs := b.AddOrder(newOrder(1, 1, 100, 10, common.Buy))

	require.Len(t, outputs, 2)
	assert.Equal(t, message.Ack{UserID: 1, UserOrderID: 1, Symbol: "AAPL"}, outputs[0])
	assert.Equal(t, message.TopOfBook{Symbol: "AAPL", Side: common.Buy, Price: 100, TotalQuantity: 10}, outputs[1])

	price, qty := b.BestBid()
	assert.Equal(t, uint32(100), price)
	assert.Equal(t, uint32(10), qty)
}

func TestAddOrder_CrossingLimitFillsAtRestingPrice(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 10, common.Sell))

	outputs := b.AddOrder(newOrder(2, 1, 105, 10, common.Buy))

	require.Len(t, outputs, 3)
	assert.IsType(t, message.Ack{}, outputs[0])

	trade, ok := outputs[1].(message.Trade)
	require.True(t, ok)
	assert.Equal(t, uint32(100), trade.Price, "trade prices at the resting order's price")
	assert.Equal(t, uint32(10), trade.Quantity)
	assert.Equal(t, uint32(2), trade.UserIDBuy)
	assert.Equal(t, uint32(1), trade.UserIDSell)

	tob, ok := outputs[2].(message.TopOfBook)
	require.True(t, ok)
	assert.Equal(t, common.Sell, tob.Side)
	assert.True(t, tob.Eliminated)
}

func TestAddOrder_PriceTimePriorityFIFO(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 5, common.Sell))
	b.AddOrder(newOrder(2, 1, 100, 5, common.Sell))

	outputs := b.AddOrder(newOrder(3, 1, 100, 5, common.Buy))

	var trades []message.Trade
	for _, out := range outputs {
		if tr, ok := out.(message.Trade); ok {
			trades = append(trades, tr)
		}
	}
	require.Len(t, trades, 1)
	assert.Equal(t, uint32(1), trades[0].UserIDSell, "earliest resting order fills first")
}

func TestAddOrder_PartialFillLeavesResidualResting(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 5, common.Sell))

	b.AddOrder(newOrder(2, 1, 100, 8, common.Buy))

	price, qty := b.BestAsk()
	assert.Zero(t, price)
	assert.Zero(t, qty)

	bidPrice, bidQty := b.BestBid()
	assert.Equal(t, uint32(100), bidPrice)
	assert.Equal(t, uint32(3), bidQty, "3 shares of the buy order remain resting")
}

func TestAddOrder_MarketOrderDiscardsUnfilledResidual(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 5, common.Sell))

	outputs := b.AddOrder(newOrder(2, 1, 0, 20, common.Buy))

	var trades int
	for _, out := range outputs {
		if _, ok := out.(message.Trade); ok {
			trades++
		}
	}
	assert.Equal(t, 1, trades)

	bidPrice, _ := b.BestBid()
	assert.Zero(t, bidPrice, "unfilled market quantity is discarded, not rested")
}

func TestAddOrder_NonCrossingLimitRestsWithoutTrade(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 5, common.Sell))

	outputs := b.AddOrder(newOrder(2, 1, 95, 5, common.Buy))

	for _, out := range outputs {
		_, isTrade := out.(message.Trade)
		assert.False(t, isTrade, "a non-crossing limit order must not trade")
	}
}

func TestCancelOrder_FoundEmitsCancelAckAndTOBUpdate(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 10, common.Buy))

	outputs := b.CancelOrder(1, 1)

	require.Len(t, outputs, 2)
	assert.Equal(t, message.CancelAck{UserID: 1, UserOrderID: 1, Symbol: "AAPL"}, outputs[0])
	tob, ok := outputs[1].(message.TopOfBook)
	require.True(t, ok)
	assert.True(t, tob.Eliminated)

	price, _ := b.BestBid()
	assert.Zero(t, price)
}

func TestCancelOrder_UnknownStillAcksIdempotently(t *testing.T) {
	b := New("AAPL")

	outputs := b.CancelOrder(99, 99)

	require.Len(t, outputs, 1)
	assert.Equal(t, message.CancelAck{UserID: 99, UserOrderID: 99, Symbol: "AAPL"}, outputs[0])

	// Cancelling the same unknown order again is still idempotent.
	outputs2 := b.CancelOrder(99, 99)
	assert.Equal(t, outputs, outputs2)
}

func TestCheckTopOfBookChanges_NoDuplicateEventsWithoutChange(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 10, common.Buy))

	// A second order resting behind the first at the same price does not
	// change the aggregate top-of-book price, but does change its total
	// quantity, so a TOB event is still expected.
	outputs := b.AddOrder(newOrder(2, 1, 100, 5, common.Buy))

	var tobs []message.TopOfBook
	for _, out := range outputs {
		if tob, ok := out.(message.TopOfBook); ok {
			tobs = append(tobs, tob)
		}
	}
	require.Len(t, tobs, 1)
	assert.Equal(t, uint32(15), tobs[0].TotalQuantity)
}

func TestFlush_ClearsBookAndResetsTOBCache(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 10, common.Buy))
	b.AddOrder(newOrder(2, 1, 105, 10, common.Sell))

	b.Flush()

	price, qty := b.BestBid()
	assert.Zero(t, price)
	assert.Zero(t, qty)
	price, qty = b.BestAsk()
	assert.Zero(t, price)
	assert.Zero(t, qty)
	assert.Empty(t, b.Bids())
	assert.Empty(t, b.Asks())

	// After a flush, resting a fresh order at the same price as before
	// must re-emit a TOB event rather than treating it as unchanged
	// relative to the stale pre-flush cache.
	outputs := b.AddOrder(newOrder(3, 1, 100, 10, common.Buy))
	var sawTOB bool
	for _, out := range outputs {
		if _, ok := out.(message.TopOfBook); ok {
			sawTOB = true
		}
	}
	assert.True(t, sawTOB)
}

func TestBidsAndAsks_OrderedBestFirst(t *testing.T) {
	b := New("AAPL")
	b.AddOrder(newOrder(1, 1, 100, 10, common.Buy))
	b.AddOrder(newOrder(2, 1, 105, 10, common.Buy))
	b.AddOrder(newOrder(3, 1, 102, 10, common.Buy))

	bids := b.Bids()
	require.Len(t, bids, 3)
	assert.Equal(t, uint32(105), bids[0].Price)
	assert.Equal(t, uint32(102), bids[1].Price)
	assert.Equal(t, uint32(100), bids[2].Price)
}
