// Package csv implements the line-oriented, comma-split text codec used
// by regression and interactive tooling (cmd/csvtool), as distinct from
// the binary wire protocol used by the TCP server. The dialect is
// unquoted and whitespace-trimmed, not the full RFC 4180 grammar.
package csv

import (
	"strconv"
	"strings"

	"matchbook/internal/common"
	"matchbook/internal/message"
)

// ParseLine parses one input line into a message.InputMessage. Blank
// lines, lines starting with '#', and malformed lines all yield (nil,
// false) — invalid lines are silently dropped, not reported as errors.
func ParseLine(line string) (message.InputMessage, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, false
	}

	tokens := splitTrim(trimmed)
	if len(tokens) == 0 {
		return nil, false
	}

	switch tokens[0] {
	case "N":
		return parseNewOrder(tokens)
	case "C":
		return parseCancel(tokens)
	case "F":
		if len(tokens) != 1 {
			return nil, false
		}
		return message.Flush{}, true
	case "Q":
		return parseQuery(tokens)
	default:
		return nil, false
	}
}

func parseNewOrder(tokens []string) (message.InputMessage, bool) {
	// N, user_id, symbol, price, qty, side(B|S), user_order_id
	if len(tokens) != 7 {
		return nil, false
	}

	userID, ok := parseU32(tokens[1])
	if !ok {
		return nil, false
	}
	symbol := tokens[2]
	if symbol == "" {
		return nil, false
	}
	price, ok := parseU32(tokens[3])
	if !ok {
		return nil, false
	}
	qty, ok := parseU32(tokens[4])
	if !ok || qty == 0 {
		return nil, false
	}

	var side common.Side
	switch tokens[5] {
	case "B":
		side = common.Buy
	case "S":
		side = common.Sell
	default:
		return nil, false
	}

	userOrderID, ok := parseU32(tokens[6])
	if !ok {
		return nil, false
	}

	return message.NewOrder{
		UserID:      userID,
		UserOrderID: userOrderID,
		Symbol:      symbol,
		Price:       price,
		Quantity:    qty,
		Side:        side,
	}, true
}

func parseCancel(tokens []string) (message.InputMessage, bool) {
	// C, user_id, user_order_id
	if len(tokens) != 3 {
		return nil, false
	}
	userID, ok := parseU32(tokens[1])
	if !ok {
		return nil, false
	}
	userOrderID, ok := parseU32(tokens[2])
	if !ok {
		return nil, false
	}
	return message.Cancel{UserID: userID, UserOrderID: userOrderID}, true
}

func parseQuery(tokens []string) (message.InputMessage, bool) {
	// Q, symbol
	if len(tokens) != 2 || tokens[1] == "" {
		return nil, false
	}
	return message.QueryTopOfBook{Symbol: tokens[1]}, true
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func parseU32(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// FormatLine formats an output message in the extended, symbol-aware
// format: the symbol follows the type token on every row.
func FormatLine(out message.OutputMessage) string {
	switch m := out.(type) {
	case message.Ack:
		return join("A", m.Symbol, itoa(m.UserID), itoa(m.UserOrderID))
	case message.CancelAck:
		return join("C", m.Symbol, itoa(m.UserID), itoa(m.UserOrderID))
	case message.Trade:
		return join("T", m.Symbol, itoa(m.UserIDBuy), itoa(m.UserOrderIDBuy),
			itoa(m.UserIDSell), itoa(m.UserOrderIDSell), itoa(m.Price), itoa(m.Quantity))
	case message.TopOfBook:
		side := sideChar(m.Side)
		if m.Eliminated {
			return join("B", m.Symbol, side, "-", "-")
		}
		return join("B", m.Symbol, side, itoa(m.Price), itoa(m.TotalQuantity))
	default:
		return ""
	}
}

// FormatLineLegacy formats an output message in the original,
// symbol-agnostic format, used for regression against legacy fixtures.
func FormatLineLegacy(out message.OutputMessage) string {
	switch m := out.(type) {
	case message.Ack:
		return join("A", itoa(m.UserID), itoa(m.UserOrderID))
	case message.CancelAck:
		return join("C", itoa(m.UserID), itoa(m.UserOrderID))
	case message.Trade:
		return join("T", itoa(m.UserIDBuy), itoa(m.UserOrderIDBuy),
			itoa(m.UserIDSell), itoa(m.UserOrderIDSell), itoa(m.Price), itoa(m.Quantity))
	case message.TopOfBook:
		side := sideChar(m.Side)
		if m.Eliminated {
			return join("B", side, "-", "-")
		}
		return join("B", side, itoa(m.Price), itoa(m.TotalQuantity))
	default:
		return ""
	}
}

func sideChar(s common.Side) string {
	if s == common.Sell {
		return "S"
	}
	return "B"
}

func join(fields ...string) string {
	return strings.Join(fields, ", ")
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
