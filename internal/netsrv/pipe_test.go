package netsrv

import "net"

// newPipePair returns an in-memory net.Conn pair for exercising the framing
// and registry logic without touching a real socket.
func newPipePair() (net.Conn, net.Conn) {
	return net.Pipe()
}
