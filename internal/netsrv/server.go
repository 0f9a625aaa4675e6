// Package netsrv implements the TCP front-end: the acceptor, the
// per-connection I/O loops, the client registry and fan-out, framing, and
// the single goroutine that owns the router.Router. Every decoded
// message is broadcast to all connected clients once processed, rather
// than routed back to a single recipient.
package netsrv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchbook/internal/message"
	"matchbook/internal/router"
	"matchbook/internal/wpool"
)

const (
	defaultWorkers  = 16
	outboundBuffer  = 256
	engineInBuffer  = 1024
	adjacentRetries = 3
)

// Server is the TCP front-end for a matchbook Router.
type Server struct {
	bindAddr   string
	port       int
	maxClients int

	pool   wpool.Pool
	engine *router.Router

	engineIn chan message.InputMessage

	mu      sync.RWMutex
	clients map[string]*clientSession

	cancel context.CancelFunc
}

// New returns a Server bound to addr:port, backed by a fresh Router.
func New(bindAddr string, port, maxClients int) *Server {
	return &Server{
		bindAddr:   bindAddr,
		port:       port,
		maxClients: maxClients,
		pool:       wpool.New(defaultWorkers),
		engine:     router.New(),
		engineIn:   make(chan message.InputMessage, engineInBuffer),
		clients:    make(map[string]*clientSession),
	}
}

// Run blocks, serving connections until ctx is cancelled or a fatal error
// occurs in the acceptor, worker pool, or engine goroutine, any of which
// tears down all the others via the supervising tomb.
func (s *Server) Run(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	t, ctx := tomb.WithContext(ctx)

	listener, err := s.listen(ctx)
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("error closing listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	t.Go(func() error {
		return s.runEngine(t)
	})

	t.Go(func() error {
		return s.accept(t, listener)
	})

	log.Info().Str("addr", listener.Addr().String()).Msg("server running")

	<-t.Dying()
	return t.Err()
}

// listen binds bindAddr:port, retrying up to adjacentRetries adjacent
// ports if the configured one is already in use.
func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig

	var lastErr error
	for attempt := 0; attempt <= adjacentRetries; attempt++ {
		port := s.port + attempt
		addr := fmt.Sprintf("%s:%d", s.bindAddr, port)

		listener, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			s.port = port
			return listener, nil
		}
		lastErr = err

		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, err
		}
		log.Warn().Str("addr", addr).Msg("address in use, trying next port")
	}
	return nil, lastErr
}

func (s *Server) accept(t *tomb.Tomb, listener net.Listener) error {
	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-t.Dying():
				return nil
			default:
			}
			log.Error().Err(err).Msg("error accepting client")
			continue
		}

		if s.atCapacity() {
			log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("rejecting connection: at max clients")
			_ = conn.Close()
			continue
		}

		sess := s.registerClient(conn)
		t.Go(func() error {
			s.writeLoop(t, sess)
			return nil
		})
		s.pool.AddTask(conn)
	}
}

func (s *Server) atCapacity() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients) >= s.maxClients
}

// deadlineBetweenFrames bounds how long a connection may sit idle between
// length-prefixed frames before the worker gives up and moves on; the
// connection is re-queued on the next read rather than dropped solely for
// being idle.
const deadlineBetweenFrames = 5 * time.Minute
