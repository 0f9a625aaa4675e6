package netsrv

import (
	"encoding/binary"
	"errors"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchbook/internal/wire"
)

const maxFrameLen = 64 * 1024

// clientSession tracks one connected client: the raw connection and its
// outbound queue. Reads happen on the worker pool (handleConnection);
// writes happen on a dedicated writeLoop goroutine, so the two directions
// never contend for the same goroutine.
type clientSession struct {
	id       string
	conn     net.Conn
	outbound chan []byte
}

func (s *Server) registerClient(conn net.Conn) *clientSession {
	sess := &clientSession{
		id:       uuid.NewString(),
		conn:     conn,
		outbound: make(chan []byte, outboundBuffer),
	}

	s.mu.Lock()
	s.clients[sess.id] = sess
	s.mu.Unlock()

	log.Info().Str("client", sess.id).Str("remote", conn.RemoteAddr().String()).Msg("client connected")
	return sess
}

// removeClient deregisters a session and closes its connection. Safe to
// call more than once for the same session (from both the read side and
// the write side on failure) since map deletion of a missing key is a
// no-op.
func (s *Server) removeClient(sess *clientSession) {
	s.mu.Lock()
	_, present := s.clients[sess.id]
	delete(s.clients, sess.id)
	s.mu.Unlock()

	if present {
		_ = sess.conn.Close()
		log.Info().Str("client", sess.id).Msg("client disconnected")
	}
}

// handleConnection is one wpool.WorkerFunc invocation: read exactly one
// length-prefixed frame from the connection, decode and hand it to the
// engine, then re-queue the connection so the next frame is served by
// whichever worker is free next. A connection is cycled through the pool
// one read at a time rather than dedicating a goroutine to it for its
// whole lifetime, so a handful of workers can service many idle
// connections.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return nil
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	payload, err := readFrame(conn)
	if err != nil {
		s.removeClientByConn(conn)
		if !errors.Is(err, io.EOF) {
			log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("connection read failed")
		}
		return nil
	}

	in, err := wire.DecodeInput(payload)
	if err != nil {
		log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("dropping malformed frame, closing connection")
		s.removeClientByConn(conn)
		return nil
	}

	select {
	case s.engineIn <- in:
	case <-t.Dying():
		return nil
	}

	s.pool.AddTask(conn)
	return nil
}

func (s *Server) removeClientByConn(conn net.Conn) {
	s.mu.RLock()
	var target *clientSession
	for _, sess := range s.clients {
		if sess.conn == conn {
			target = sess
			break
		}
	}
	s.mu.RUnlock()

	if target != nil {
		s.removeClient(target)
	} else {
		_ = conn.Close()
	}
}

// readFrame reads one 4-byte big-endian length prefix followed by that
// many bytes of payload.
func readFrame(conn net.Conn) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 || n > maxFrameLen {
		return nil, errors.New("netsrv: frame length out of bounds")
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// writeFrame writes a 4-byte big-endian length prefix followed by
// payload.
func writeFrame(conn net.Conn, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

// writeLoop drains sess.outbound onto the wire until the connection fails
// or the tomb starts dying, then deregisters the client.
func (s *Server) writeLoop(t *tomb.Tomb, sess *clientSession) {
	defer s.removeClient(sess)

	for {
		select {
		case <-t.Dying():
			return
		case frame, ok := <-sess.outbound:
			if !ok {
				return
			}
			if err := writeFrame(sess.conn, frame); err != nil {
				log.Warn().Err(err).Str("client", sess.id).Msg("write failed")
				return
			}
		}
	}
}
