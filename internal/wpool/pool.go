// Package wpool is a small tomb-supervised worker pool: a fixed number of
// goroutines pull tasks off a shared channel and run a caller-supplied
// work function against them, exiting together when the supervising tomb
// starts dying.
package wpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultTaskChanSize = 256

// WorkerFunc processes one task. A non-nil error kills the tomb.
type WorkerFunc = func(t *tomb.Tomb, task any) error

// Pool is a fixed-size pool of workers draining a shared task channel.
type Pool struct {
	size  int
	tasks chan any
	work  WorkerFunc
}

// New returns a Pool with size workers and a task channel capacity of
// defaultTaskChanSize.
func New(size int) Pool {
	return Pool{
		size:  size,
		tasks: make(chan any, defaultTaskChanSize),
	}
}

// AddTask enqueues a task for any free worker to pick up.
func (p *Pool) AddTask(task any) {
	p.tasks <- task
}

// Setup starts size workers under t, each running work against tasks
// pulled from the pool's channel, and blocks until t starts dying.
func (p *Pool) Setup(t *tomb.Tomb, work WorkerFunc) {
	p.work = work
	log.Info().Int("workers", p.size).Msg("starting worker pool")

	for i := 0; i < p.size; i++ {
		t.Go(func() error {
			return p.loop(t)
		})
	}

	<-t.Dying()
}

func (p *Pool) loop(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := p.work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
