package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/internal/common"
	"matchbook/internal/message"
)

func TestRoundTrip_NewOrder(t *testing.T) {
	in := message.NewOrder{
		UserID:      1,
		UserOrderID: 2,
		Symbol:      "AAPL",
		Price:       100,
		Quantity:    10,
		Side:        common.Sell,
	}

	buf, err := EncodeInput(in)
	require.NoError(t, err)

	out, err := DecodeInput(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRoundTrip_Cancel(t *testing.T) {
	in := message.Cancel{UserID: 7, UserOrderID: 8}

	buf, err := EncodeInput(in)
	require.NoError(t, err)

	out, err := DecodeInput(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRoundTrip_Flush(t *testing.T) {
	buf, err := EncodeInput(message.Flush{})
	require.NoError(t, err)

	out, err := DecodeInput(buf)
	require.NoError(t, err)
	assert.Equal(t, message.Flush{}, out)
}

func TestRoundTrip_QueryTopOfBook(t *testing.T) {
	in := message.QueryTopOfBook{Symbol: "MSFT"}

	buf, err := EncodeInput(in)
	require.NoError(t, err)

	out, err := DecodeInput(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRoundTrip_Ack(t *testing.T) {
	out := message.Ack{UserID: 1, UserOrderID: 2, Symbol: "AAPL"}

	buf, err := EncodeOutput(out)
	require.NoError(t, err)

	decoded, err := DecodeOutput(buf)
	require.NoError(t, err)
	assert.Equal(t, out, decoded)
}

func TestRoundTrip_CancelAck(t *testing.T) {
	out := message.CancelAck{UserID: 1, UserOrderID: 2, Symbol: "AAPL"}

	buf, err := EncodeOutput(out)
	require.NoError(t, err)

	decoded, err := DecodeOutput(buf)
	require.NoError(t, err)
	assert.Equal(t, out, decoded)
}

func TestRoundTrip_Trade(t *testing.T) {
	out := message.Trade{
		Symbol:          "AAPL",
		UserIDBuy:       1,
		UserOrderIDBuy:  2,
		UserIDSell:      3,
		UserOrderIDSell: 4,
		Price:           100,
		Quantity:        10,
	}

	buf, err := EncodeOutput(out)
	require.NoError(t, err)

	decoded, err := DecodeOutput(buf)
	require.NoError(t, err)
	assert.Equal(t, out, decoded)
}

func TestRoundTrip_TopOfBook(t *testing.T) {
	out := message.TopOfBook{Symbol: "AAPL", Side: common.Sell, Price: 100, TotalQuantity: 5}

	buf, err := EncodeOutput(out)
	require.NoError(t, err)

	decoded, err := DecodeOutput(buf)
	require.NoError(t, err)
	assert.Equal(t, out, decoded)
}

func TestRoundTrip_TopOfBookEliminated(t *testing.T) {
	out := message.TopOfBook{Symbol: "AAPL", Side: common.Buy, Eliminated: true}

	buf, err := EncodeOutput(out)
	require.NoError(t, err)

	decoded, err := DecodeOutput(buf)
	require.NoError(t, err)
	assert.Equal(t, out, decoded)
}

func TestDecodeInput_TruncatedHeaderReturnsError(t *testing.T) {
	_, err := DecodeInput([]byte{0, 1})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeInput_VersionMismatchReturnsError(t *testing.T) {
	buf := []byte{TypeNewOrder, ProtocolVersion + 1, 0, 0}
	_, err := DecodeInput(buf)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeInput_UnknownTypeReturnsError(t *testing.T) {
	buf := []byte{99, ProtocolVersion, 0, 0}
	_, err := DecodeInput(buf)
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

func TestDecodeInput_InvalidSideByteReturnsInvalidFieldError(t *testing.T) {
	in := message.NewOrder{UserID: 1, UserOrderID: 1, Symbol: "AAPL", Price: 100, Quantity: 10, Side: common.Buy}
	buf, err := EncodeInput(in)
	require.NoError(t, err)

	buf[headerLen+16] = 2 // corrupt the side byte to an invalid value

	_, err = DecodeInput(buf)
	var fieldErr *InvalidFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "side", fieldErr.Field)
}

func TestDecodeInput_ZeroQuantityReturnsInvalidFieldError(t *testing.T) {
	in := message.NewOrder{UserID: 1, UserOrderID: 1, Symbol: "AAPL", Price: 100, Quantity: 1, Side: common.Buy}
	buf, err := EncodeInput(in)
	require.NoError(t, err)

	buf[headerLen+12] = 0
	buf[headerLen+13] = 0
	buf[headerLen+14] = 0
	buf[headerLen+15] = 0

	_, err = DecodeInput(buf)
	var fieldErr *InvalidFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "quantity", fieldErr.Field)
}

func TestEncodeInput_EmptySymbolReturnsInvalidSymbol(t *testing.T) {
	_, err := EncodeInput(message.NewOrder{UserID: 1, UserOrderID: 1, Symbol: "", Price: 1, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestEncodeInput_OversizedSymbolReturnsInvalidSymbol(t *testing.T) {
	longSymbol := make([]byte, maxSymbolLen+1)
	for i := range longSymbol {
		longSymbol[i] = 'A'
	}
	_, err := EncodeInput(message.NewOrder{UserID: 1, UserOrderID: 1, Symbol: string(longSymbol), Price: 1, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestDecodeInput_TruncatedSymbolReturnsError(t *testing.T) {
	in := message.QueryTopOfBook{Symbol: "AAPL"}
	buf, err := EncodeInput(in)
	require.NoError(t, err)

	_, err = DecodeInput(buf[:len(buf)-1])
	assert.ErrorIs(t, err, ErrTruncated)
}
