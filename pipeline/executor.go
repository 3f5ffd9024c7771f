package pipeline

import (
	"sync"

	"github.com/cobalt-web/cobalt/router"
)

// Executor runs units of work off the goroutine that submits them. The
// transport loop of a connection must never be blocked by a handler, so
// every handler invocation and every non-trivial body encoding goes
// through one of these.
type Executor interface {
	Submit(task func())
}

// Selector picks a dedicated executor for a route, usually by its executor
// key. Routes without a dedicated executor fall back to the connection's
// own serial executor.
type Selector interface {
	Select(m router.Match) (Executor, bool)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(m router.Match) (Executor, bool)

func (f SelectorFunc) Select(m router.Match) (Executor, bool) {
	return f(m)
}

type noSelector struct{}

func (noSelector) Select(router.Match) (Executor, bool) {
	return nil, false
}

// Pool is a fixed-size worker pool.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func NewPool(workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		tasks: make(chan func(), queue),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}

	return p
}

func (p *Pool) Submit(task func()) {
	p.tasks <- task
}

// Close stops accepting tasks and waits until the queued ones finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()

	for task := range p.tasks {
		task()
	}
}

// Serial runs tasks one at a time in submission order on a single
// dedicated goroutine. It stands in for the connection's single-threaded
// loop: work submitted to it never races with other work of the same
// connection.
type Serial struct {
	tasks chan func()
	done  chan struct{}
}

func NewSerial() *Serial {
	s := &Serial{
		tasks: make(chan func(), 16),
		done:  make(chan struct{}),
	}

	go s.run()

	return s
}

func (s *Serial) Submit(task func()) {
	s.tasks <- task
}

// Close stops the loop after the queued tasks finish.
func (s *Serial) Close() {
	close(s.tasks)
	<-s.done
}

func (s *Serial) run() {
	defer close(s.done)

	for task := range s.tasks {
		task()
	}
}
