// Package wire implements the binary encoding used on the TCP transport.
// Each logical message is one payload; the 4-byte big-endian length
// prefix that separates payloads on the stream is internal/netsrv's
// responsibility, not this package's — EncodeInput/EncodeOutput and
// DecodeInput/DecodeOutput here only handle a single payload's bytes.
package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"matchbook/internal/common"
	"matchbook/internal/message"
)

// ProtocolVersion is the single supported wire protocol version.
const ProtocolVersion = 1

// Input message type IDs (client -> server).
const (
	TypeNewOrder uint8 = iota
	TypeCancel
	TypeFlush
	TypeQueryTopOfBook
)

// Output message type IDs (server -> client).
const (
	TypeAck       uint8 = 10
	TypeCancelAck uint8 = 11
	TypeTrade     uint8 = 12
	TypeTopOfBook uint8 = 13
)

const (
	maxSymbolLen = 32
	headerLen    = 4
)

func putHeader(buf []byte, msgType uint8) {
	buf[0] = msgType
	buf[1] = ProtocolVersion
	buf[2] = 0
	buf[3] = 0
}

func checkHeader(buf []byte) (msgType uint8, err error) {
	if len(buf) < headerLen {
		return 0, ErrTruncated
	}
	if buf[1] != ProtocolVersion {
		return 0, ErrVersionMismatch
	}
	return buf[0], nil
}

func putSymbol(buf []byte, offset int, symbol string) int {
	buf[offset] = uint8(len(symbol))
	copy(buf[offset+1:], symbol)
	return offset + 1 + len(symbol)
}

// readSymbol reads a length-prefixed symbol starting at offset, returning
// the symbol and the offset just past it.
func readSymbol(buf []byte, offset int) (string, int, error) {
	if offset+1 > len(buf) {
		return "", 0, ErrTruncated
	}
	symLen := int(buf[offset])
	offset++
	if symLen == 0 || symLen > maxSymbolLen {
		return "", 0, ErrInvalidSymbol
	}
	if offset+symLen > len(buf) {
		return "", 0, ErrTruncated
	}
	raw := buf[offset : offset+symLen]
	if !utf8.Valid(raw) {
		return "", 0, ErrInvalidSymbol
	}
	return string(raw), offset + symLen, nil
}

func symbolEncodedLen(symbol string) (int, error) {
	if len(symbol) == 0 || len(symbol) > maxSymbolLen {
		return 0, ErrInvalidSymbol
	}
	return 1 + len(symbol), nil
}

// ---------------------------------------------------------------------------
// Input messages (decode: bytes -> message.InputMessage)
// ---------------------------------------------------------------------------

// DecodeInput decodes one input payload into a message.InputMessage.
func DecodeInput(buf []byte) (message.InputMessage, error) {
	msgType, err := checkHeader(buf)
	if err != nil {
		return nil, err
	}
	body := buf[headerLen:]

	switch msgType {
	case TypeNewOrder:
		return decodeNewOrder(body)
	case TypeCancel:
		return decodeCancel(body)
	case TypeFlush:
		return message.Flush{}, nil
	case TypeQueryTopOfBook:
		return decodeQueryTopOfBook(body)
	default:
		return nil, ErrUnknownMessageType
	}
}

func decodeNewOrder(body []byte) (message.InputMessage, error) {
	// u32 user_id, u32 user_order_id, u32 price, u32 qty, u8 side, u8 sym_len, sym_bytes
	const fixedLen = 4 + 4 + 4 + 4 + 1
	if len(body) < fixedLen+1 {
		return nil, ErrTruncated
	}

	userID := binary.BigEndian.Uint32(body[0:4])
	userOrderID := binary.BigEndian.Uint32(body[4:8])
	price := binary.BigEndian.Uint32(body[8:12])
	qty := binary.BigEndian.Uint32(body[12:16])
	sideByte := body[16]

	symbol, _, err := readSymbol(body, fixedLen)
	if err != nil {
		return nil, err
	}

	if sideByte != 0 && sideByte != 1 {
		return nil, errInvalidField("side")
	}
	if qty == 0 {
		return nil, errInvalidField("quantity")
	}

	side := common.Buy
	if sideByte == 1 {
		side = common.Sell
	}

	return message.NewOrder{
		UserID:      userID,
		UserOrderID: userOrderID,
		Symbol:      symbol,
		Price:       price,
		Quantity:    qty,
		Side:        side,
	}, nil
}

func decodeCancel(body []byte) (message.InputMessage, error) {
	if len(body) < 8 {
		return nil, ErrTruncated
	}
	return message.Cancel{
		UserID:      binary.BigEndian.Uint32(body[0:4]),
		UserOrderID: binary.BigEndian.Uint32(body[4:8]),
	}, nil
}

func decodeQueryTopOfBook(body []byte) (message.InputMessage, error) {
	symbol, _, err := readSymbol(body, 0)
	if err != nil {
		return nil, err
	}
	return message.QueryTopOfBook{Symbol: symbol}, nil
}

// EncodeInput encodes an input message into wire bytes. Only used by
// clients (cmd/client) and tests, since the server only decodes inputs.
func EncodeInput(in message.InputMessage) ([]byte, error) {
	switch m := in.(type) {
	case message.NewOrder:
		return encodeNewOrder(m)
	case message.Cancel:
		return encodeCancel(m)
	case message.Flush:
		buf := make([]byte, headerLen)
		putHeader(buf, TypeFlush)
		return buf, nil
	case message.QueryTopOfBook:
		return encodeQueryTopOfBook(m)
	default:
		return nil, ErrUnknownMessageType
	}
}

func encodeNewOrder(m message.NewOrder) ([]byte, error) {
	symLen, err := symbolEncodedLen(m.Symbol)
	if err != nil {
		return nil, err
	}

	const fixedLen = 4 + 4 + 4 + 4 + 1
	buf := make([]byte, headerLen+fixedLen+symLen)
	putHeader(buf, TypeNewOrder)

	body := buf[headerLen:]
	binary.BigEndian.PutUint32(body[0:4], m.UserID)
	binary.BigEndian.PutUint32(body[4:8], m.UserOrderID)
	binary.BigEndian.PutUint32(body[8:12], m.Price)
	binary.BigEndian.PutUint32(body[12:16], m.Quantity)
	body[16] = sideByte(m.Side)
	putSymbol(body, fixedLen, m.Symbol)

	return buf, nil
}

func encodeCancel(m message.Cancel) ([]byte, error) {
	buf := make([]byte, headerLen+8)
	putHeader(buf, TypeCancel)
	body := buf[headerLen:]
	binary.BigEndian.PutUint32(body[0:4], m.UserID)
	binary.BigEndian.PutUint32(body[4:8], m.UserOrderID)
	return buf, nil
}

func encodeQueryTopOfBook(m message.QueryTopOfBook) ([]byte, error) {
	symLen, err := symbolEncodedLen(m.Symbol)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerLen+symLen)
	putHeader(buf, TypeQueryTopOfBook)
	putSymbol(buf, headerLen, m.Symbol)
	return buf, nil
}

// ---------------------------------------------------------------------------
// Output messages (encode: message.OutputMessage -> bytes)
// ---------------------------------------------------------------------------

// EncodeOutput encodes an output message into wire bytes.
func EncodeOutput(out message.OutputMessage) ([]byte, error) {
	switch m := out.(type) {
	case message.Ack:
		return encodeAck(m)
	case message.CancelAck:
		return encodeCancelAck(m)
	case message.Trade:
		return encodeTrade(m)
	case message.TopOfBook:
		return encodeTopOfBook(m)
	default:
		return nil, ErrUnknownMessageType
	}
}

func encodeAck(m message.Ack) ([]byte, error) {
	symLen, err := symbolEncodedLen(m.Symbol)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerLen+8+symLen)
	putHeader(buf, TypeAck)
	body := buf[headerLen:]
	binary.BigEndian.PutUint32(body[0:4], m.UserID)
	binary.BigEndian.PutUint32(body[4:8], m.UserOrderID)
	putSymbol(body, 8, m.Symbol)
	return buf, nil
}

func encodeCancelAck(m message.CancelAck) ([]byte, error) {
	symLen, err := symbolEncodedLen(m.Symbol)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerLen+8+symLen)
	putHeader(buf, TypeCancelAck)
	body := buf[headerLen:]
	binary.BigEndian.PutUint32(body[0:4], m.UserID)
	binary.BigEndian.PutUint32(body[4:8], m.UserOrderID)
	putSymbol(body, 8, m.Symbol)
	return buf, nil
}

func encodeTrade(m message.Trade) ([]byte, error) {
	symLen, err := symbolEncodedLen(m.Symbol)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerLen+symLen+24)
	putHeader(buf, TypeTrade)
	body := buf[headerLen:]
	offset := putSymbol(body, 0, m.Symbol)
	binary.BigEndian.PutUint32(body[offset:offset+4], m.UserIDBuy)
	binary.BigEndian.PutUint32(body[offset+4:offset+8], m.UserOrderIDBuy)
	binary.BigEndian.PutUint32(body[offset+8:offset+12], m.UserIDSell)
	binary.BigEndian.PutUint32(body[offset+12:offset+16], m.UserOrderIDSell)
	binary.BigEndian.PutUint32(body[offset+16:offset+20], m.Price)
	binary.BigEndian.PutUint32(body[offset+20:offset+24], m.Quantity)
	return buf, nil
}

func encodeTopOfBook(m message.TopOfBook) ([]byte, error) {
	symLen, err := symbolEncodedLen(m.Symbol)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, headerLen+symLen+10)
	putHeader(buf, TypeTopOfBook)
	body := buf[headerLen:]
	offset := putSymbol(body, 0, m.Symbol)
	body[offset] = sideByte(m.Side)
	if m.Eliminated {
		body[offset+1] = 1
	}
	binary.BigEndian.PutUint32(body[offset+2:offset+6], m.Price)
	binary.BigEndian.PutUint32(body[offset+6:offset+10], m.TotalQuantity)
	return buf, nil
}

// DecodeOutput decodes one output payload into a message.OutputMessage.
// Used by cmd/client and by round-trip tests.
func DecodeOutput(buf []byte) (message.OutputMessage, error) {
	msgType, err := checkHeader(buf)
	if err != nil {
		return nil, err
	}
	body := buf[headerLen:]

	switch msgType {
	case TypeAck:
		return decodeAck(body)
	case TypeCancelAck:
		return decodeCancelAck(body)
	case TypeTrade:
		return decodeTrade(body)
	case TypeTopOfBook:
		return decodeTopOfBook(body)
	default:
		return nil, ErrUnknownMessageType
	}
}

func decodeAck(body []byte) (message.OutputMessage, error) {
	if len(body) < 8 {
		return nil, ErrTruncated
	}
	userID := binary.BigEndian.Uint32(body[0:4])
	userOrderID := binary.BigEndian.Uint32(body[4:8])
	symbol, _, err := readSymbol(body, 8)
	if err != nil {
		return nil, err
	}
	return message.Ack{UserID: userID, UserOrderID: userOrderID, Symbol: symbol}, nil
}

func decodeCancelAck(body []byte) (message.OutputMessage, error) {
	if len(body) < 8 {
		return nil, ErrTruncated
	}
	userID := binary.BigEndian.Uint32(body[0:4])
	userOrderID := binary.BigEndian.Uint32(body[4:8])
	symbol, _, err := readSymbol(body, 8)
	if err != nil {
		return nil, err
	}
	return message.CancelAck{UserID: userID, UserOrderID: userOrderID, Symbol: symbol}, nil
}

func decodeTrade(body []byte) (message.OutputMessage, error) {
	symbol, offset, err := readSymbol(body, 0)
	if err != nil {
		return nil, err
	}
	if len(body) < offset+24 {
		return nil, ErrTruncated
	}
	return message.Trade{
		Symbol:          symbol,
		UserIDBuy:       binary.BigEndian.Uint32(body[offset : offset+4]),
		UserOrderIDBuy:  binary.BigEndian.Uint32(body[offset+4 : offset+8]),
		UserIDSell:      binary.BigEndian.Uint32(body[offset+8 : offset+12]),
		UserOrderIDSell: binary.BigEndian.Uint32(body[offset+12 : offset+16]),
		Price:           binary.BigEndian.Uint32(body[offset+16 : offset+20]),
		Quantity:        binary.BigEndian.Uint32(body[offset+20 : offset+24]),
	}, nil
}

func decodeTopOfBook(body []byte) (message.OutputMessage, error) {
	symbol, offset, err := readSymbol(body, 0)
	if err != nil {
		return nil, err
	}
	if len(body) < offset+10 {
		return nil, ErrTruncated
	}
	sideB := body[offset]
	if sideB != 0 && sideB != 1 {
		return nil, errInvalidField("side")
	}
	elimB := body[offset+1]
	if elimB != 0 && elimB != 1 {
		return nil, errInvalidField("eliminated")
	}

	side := common.Buy
	if sideB == 1 {
		side = common.Sell
	}

	return message.TopOfBook{
		Symbol:        symbol,
		Side:          side,
		Price:         binary.BigEndian.Uint32(body[offset+2 : offset+6]),
		TotalQuantity: binary.BigEndian.Uint32(body[offset+6 : offset+10]),
		Eliminated:    elimB == 1,
	}, nil
}

func sideByte(s common.Side) uint8 {
	if s == common.Sell {
		return 1
	}
	return 0
}
