// Command client is a small interactive/scriptable CLI for talking to a
// matchbook server: a flag-driven one-shot action plus an async goroutine
// that prints every incoming report as it arrives.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"matchbook/internal/common"
	"matchbook/internal/message"
	"matchbook/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9000", "address of the matchbook server")
	action := flag.String("action", "place", "action to perform: place, cancel, query, flush")

	userID := flag.Uint("user", 0, "user id")
	userOrderID := flag.Uint("order", 0, "user order id")
	symbol := flag.String("symbol", "AAPL", "symbol")
	sideStr := flag.String("side", "buy", "order side: buy or sell")
	price := flag.Uint("price", 0, "limit price in ticks (0 means market order)")
	qty := flag.Uint("qty", 0, "quantity")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	var in message.InputMessage
	switch strings.ToLower(*action) {
	case "place":
		if *qty == 0 {
			log.Fatal("error: -qty must be > 0")
		}
		in = message.NewOrder{
			UserID:      uint32(*userID),
			UserOrderID: uint32(*userOrderID),
			Symbol:      *symbol,
			Price:       uint32(*price),
			Quantity:    uint32(*qty),
			Side:        side,
		}
	case "cancel":
		in = message.Cancel{UserID: uint32(*userID), UserOrderID: uint32(*userOrderID)}
	case "query":
		in = message.QueryTopOfBook{Symbol: *symbol}
	case "flush":
		in = message.Flush{}
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	if err := sendMessage(conn, in); err != nil {
		log.Fatalf("failed to send %s: %v", *action, err)
	}
	fmt.Printf("-> sent %s\n", *action)

	fmt.Println("listening for reports... (press ctrl+c to exit)")
	select {}
}

func sendMessage(conn net.Conn, in message.InputMessage) error {
	payload, err := wire.EncodeInput(in)
	if err != nil {
		return err
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = conn.Write(payload)
	return err
}

// readReports continuously reads length-prefixed frames off conn, decodes
// them, and prints them until the connection closes.
func readReports(conn net.Conn) {
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		n := binary.BigEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(conn, payload); err != nil {
			log.Printf("error reading frame body: %v", err)
			return
		}

		out, err := wire.DecodeOutput(payload)
		if err != nil {
			log.Printf("error decoding frame: %v", err)
			continue
		}

		printReport(out)
	}
}

func printReport(out message.OutputMessage) {
	switch m := out.(type) {
	case message.Ack:
		fmt.Printf("\n[ACK] %s user=%d order=%d\n", m.Symbol, m.UserID, m.UserOrderID)
	case message.CancelAck:
		fmt.Printf("\n[CANCEL ACK] %s user=%d order=%d\n", m.Symbol, m.UserID, m.UserOrderID)
	case message.Trade:
		fmt.Printf("\n[TRADE] %s qty=%d price=%d buy=(%d,%d) sell=(%d,%d)\n",
			m.Symbol, m.Quantity, m.Price, m.UserIDBuy, m.UserOrderIDBuy, m.UserIDSell, m.UserOrderIDSell)
	case message.TopOfBook:
		sideStr := "BUY"
		if m.Side == common.Sell {
			sideStr = "SELL"
		}
		if m.Eliminated {
			fmt.Printf("\n[TOB] %s %s eliminated\n", m.Symbol, sideStr)
		} else {
			fmt.Printf("\n[TOB] %s %s price=%d qty=%d\n", m.Symbol, sideStr, m.Price, m.TotalQuantity)
		}
	default:
		log.Printf("unrecognized report type: %T", out)
	}
}
