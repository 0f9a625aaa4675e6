package netsrv

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchbook/internal/message"
	"matchbook/internal/wire"
)

// runEngine is the single goroutine that owns s.engine (the Router): each
// message runs to completion, its outputs are broadcast, and only then is
// the next message dequeued. No other goroutine may touch s.engine.
func (s *Server) runEngine(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case in := <-s.engineIn:
			outputs := s.engine.Process(in)
			s.broadcast(outputs)
		}
	}
}

// broadcast encodes every output and fans it out to all connected
// clients. A client whose outbound queue is full has its frame dropped
// rather than blocking the engine goroutine — a slow reader must not
// stall matching for everyone else. The drop is logged so it is visible,
// not silent.
func (s *Server) broadcast(outputs []message.OutputMessage) {
	if len(outputs) == 0 {
		return
	}

	frames := make([][]byte, 0, len(outputs))
	for _, out := range outputs {
		frame, err := wire.EncodeOutput(out)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode outbound message, dropping")
			continue
		}
		frames = append(frames, frame)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.clients {
		for _, frame := range frames {
			select {
			case sess.outbound <- frame:
			default:
				log.Warn().Str("client", sess.id).Msg("outbound queue full, dropping frame")
			}
		}
	}
}
