// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package streamkit

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	kcp "github.com/xtaci/kcp-go/v5"
	"github.com/pkg/errors"
	"github.com/xtaci/smux"
)

// Server is the supervisor: it binds a listener, launches a fixed pool of
// Workers, accepts connections, dispatches them round-robin, and
// coordinates shutdown through a shared Notify. See spec.md S4.6.
type Server[Req any, Resp Compose, ErrResp Compose, H Handler[Req, Resp]] struct {
	port int

	workers []*Worker[Req, Resp, ErrResp, H]
	index   uint64 // atomic round-robin cursor, shared by every accept loop

	stats *Stats

	compress bool
	muxCfg   *smux.Config

	mu            sync.Mutex
	started       bool // set by Run/RunListener/ListenKCP; guards against a second top-level call
	cancelRunning context.CancelFunc // cancels the ctx runMany's listeners run under; set once, by runMany
}

// markStarted guards against Run, RunListener, or ListenKCP being called
// more than once on the same Server -- each of those owns this Server's
// worker pool for its entire lifetime, and a second call would race
// launchWorkers against an already-running accept loop.
func (s *Server[Req, Resp, ErrResp, H]) markStarted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyRunning
	}
	s.started = true
	return nil
}

// NewServer records the TCP port to bind; it does not bind yet.
func NewServer[Req any, Resp Compose, ErrResp Compose, H Handler[Req, Resp]](port int) *Server[Req, Resp, ErrResp, H] {
	return &Server[Req, Resp, ErrResp, H]{port: port, stats: &Stats{}}
}

// Workers stores n copies of the given worker template (builder + parser).
// Each copy gets its own Parser clone, since a Parser instance is never
// shared between connections.
func (s *Server[Req, Resp, ErrResp, H]) Workers(n int, template *Worker[Req, Resp, ErrResp, H]) *Server[Req, Resp, ErrResp, H] {
	backlog := cap(template.conns)
	s.workers = make([]*Worker[Req, Resp, ErrResp, H], n)
	for i := 0; i < n; i++ {
		s.workers[i] = NewWorker[Req, Resp, ErrResp, H](template.builder, template.parser.Clone(), backlog).WithStats(s.stats)
	}
	return s
}

// Stats returns the Server's metrics sink, for wiring into a StatsLogger or
// reading directly (e.g. from a SIGUSR1 handler).
func (s *Server[Req, Resp, ErrResp, H]) Stats() *Stats {
	return s.stats
}

// Compress turns on transparent snappy compression for every accepted
// connection (SPEC_FULL.md S3.1). Must be called before Run.
func (s *Server[Req, Resp, ErrResp, H]) Compress(enabled bool) *Server[Req, Resp, ErrResp, H] {
	s.compress = enabled
	return s
}

// Multiplex turns on smux session multiplexing: every accepted connection
// is terminated as an smux server session, and every stream the session
// accepts is dispatched to a worker as if it were its own connection
// (SPEC_FULL.md S3.2). Must be called before Run.
func (s *Server[Req, Resp, ErrResp, H]) Multiplex(cfg *smux.Config) *Server[Req, Resp, ErrResp, H] {
	s.muxCfg = cfg
	return s
}

// dispatch hands conn to the next worker in round-robin order. Safe to call
// concurrently from multiple accept loops (plain TCP plus any number of
// smux sessions, or multiple KCP port listeners).
func (s *Server[Req, Resp, ErrResp, H]) dispatch(conn net.Conn) {
	n := uint64(len(s.workers))
	idx := atomic.AddUint64(&s.index, 1) % n
	s.workers[idx].Submit(conn)
}

func (s *Server[Req, Resp, ErrResp, H]) wrapAccepted(conn net.Conn) net.Conn {
	if s.compress {
		return newCompConn(conn)
	}
	return conn
}

func (s *Server[Req, Resp, ErrResp, H]) acceptOne(conn net.Conn) {
	conn = s.wrapAccepted(conn)
	if s.muxCfg != nil {
		go serveMuxSession(conn, s.muxCfg, s.dispatch)
		return
	}
	s.dispatch(conn)
}

// launchWorkers starts every worker's dispatch goroutine and blocks until
// all of them report ready. This replaces the fixed ~1s startup sleep
// spec.md S9 flags as a race: workers publish readiness explicitly, so
// there is no window where the accept loop could submit to a worker before
// its dispatcher goroutine is receiving.
func (s *Server[Req, Resp, ErrResp, H]) launchWorkers(notify *Notify) (doneChans []<-chan struct{}) {
	readyChans := make([]<-chan struct{}, len(s.workers))
	doneChans = make([]<-chan struct{}, len(s.workers))
	for i, w := range s.workers {
		ready, done := w.Launch(notify.Watch())
		readyChans[i] = ready
		doneChans[i] = done
	}
	for _, ready := range readyChans {
		<-ready
	}
	return doneChans
}

// Run binds 0.0.0.0:<port>, starts the worker pool, and accepts connections
// until ctx is cancelled, Shutdown is called, or every listener's accept
// loop has errored. It always returns a non-nil error: ErrServerClosed on
// a clean shutdown, or the triggering error otherwise.
func (s *Server[Req, Resp, ErrResp, H]) Run(ctx context.Context) error {
	return s.RunListener(ctx, fmt.Sprintf("0.0.0.0:%d", s.port))
}

// RunListener is like Run but binds the given address instead of deriving
// it from the port passed to NewServer; it also accepts a
// "host:minport-maxport" address (SPEC_FULL.md S3.3), opening one listener
// per port in the range, all sharing this Server's worker pool.
func (s *Server[Req, Resp, ErrResp, H]) RunListener(ctx context.Context, addr string) error {
	if err := s.markStarted(); err != nil {
		return err
	}
	mp, err := ParseMultiPort(addr)
	if err != nil {
		return err
	}
	return s.runMany(ctx, portRangeAddrs(mp), func(a string) (net.Listener, error) { return net.Listen("tcp", a) })
}

// ListenKCP is RunListener's KCP/UDP counterpart (SPEC_FULL.md S3.3):
// crypt/key select the block cipher, opts controls erasure coding and
// (linux only) tcpraw emulation.
func (s *Server[Req, Resp, ErrResp, H]) ListenKCP(ctx context.Context, addr, crypt string, key []byte, opts KCPOptions) error {
	if err := s.markStarted(); err != nil {
		return err
	}
	block, effective := SelectBlockCrypt(crypt, key)
	log.Println("streamkit: kcp cipher:", effective)

	mp, err := ParseMultiPort(addr)
	if err != nil {
		return err
	}

	open := func(a string) (net.Listener, error) {
		lis, err := openKCPListener(a, block, opts)
		if err != nil {
			return nil, err
		}
		return kcpListenerAdapter{lis}, nil
	}
	return s.runMany(ctx, portRangeAddrs(mp), open)
}

// portRangeAddrs expands a MultiPort into one "host:port" string per port
// in its inclusive range; a single-port MultiPort yields exactly one.
func portRangeAddrs(mp *MultiPort) []string {
	addrs := make([]string, 0, mp.MaxPort-mp.MinPort+1)
	for port := mp.MinPort; port <= mp.MaxPort; port++ {
		addrs = append(addrs, fmt.Sprintf("%s:%d", mp.Host, port))
	}
	return addrs
}

// kcpListenerAdapter adapts *kcp.Listener's AcceptKCP to net.Listener's
// Accept, so the shared acceptLoop works for both transports.
type kcpListenerAdapter struct {
	*kcp.Listener
}

func (a kcpListenerAdapter) Accept() (net.Conn, error) {
	return a.Listener.AcceptKCP()
}

// runMany launches the worker pool once, opens one listener per address,
// and runs an independent accept loop per listener, all dispatching into
// the same worker pool. Each listener's accept loop is isolated from its
// siblings: one erroring on its own (a transient accept error, its socket
// being closed out from under it) does not cancel ctx or affect the
// others, which keep accepting. Only ctx itself being cancelled (directly,
// or via Shutdown) stops every listener. The shared Notify is fired -- and
// the worker pool drained -- exactly once, after every listener's accept
// loop has actually returned, so a still-running sibling's Submit never
// blocks against a dispatcher that already took the Notify's Done() branch
// and exited (see DESIGN.md).
func (s *Server[Req, Resp, ErrResp, H]) runMany(ctx context.Context, addrs []string, open func(string) (net.Listener, error)) error {
	if len(s.workers) == 0 {
		return ErrNoWorkers
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelRunning = cancel
	s.mu.Unlock()
	defer cancel()

	notify, doneChans := s.ensureRunning()
	defer func() {
		notify.Fire()
		for _, done := range doneChans {
			<-done
		}
	}()

	var wg sync.WaitGroup
	errs := make([]error, len(addrs))
	for i, a := range addrs {
		ln, err := open(a)
		if err != nil {
			cancel()
			wg.Wait()
			return errors.Wrapf(err, "listen %s", a)
		}
		go func() {
			<-ctx.Done()
			ln.Close()
		}()
		wg.Add(1)
		go func(i int, ln net.Listener) {
			defer wg.Done()
			errs[i] = s.acceptLoop(ctx, ln)
		}(i, ln)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil && !errors.Is(e, ErrServerClosed) && !errors.Is(e, context.Canceled) {
			return e
		}
	}
	return ErrServerClosed
}

// acceptLoop runs the accept loop for a single already-open listener,
// submitting every accepted connection to the shared worker pool.
func (s *Server[Req, Resp, ErrResp, H]) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ErrServerClosed
			default:
				return errors.Wrap(err, "accept")
			}
		}
		s.acceptOne(conn)
	}
}

// ensureRunning launches the worker pool. runMany calls it exactly once,
// before opening any listener, so there is no concurrent caller to race.
func (s *Server[Req, Resp, ErrResp, H]) ensureRunning() (*Notify, []<-chan struct{}) {
	notify := NewNotify()
	return notify, s.launchWorkers(notify)
}

// Shutdown cancels the context the running RunListener/ListenKCP call is
// using, which closes every open listener. Once every listener's accept
// loop has actually returned, the shared Notify fires and the worker pool
// drains, exactly as spec.md S4.6 describes. It is safe to call before
// Run/RunListener/ListenKCP, in which case it has no effect once they do
// start (Shutdown does not itself block waiting for that race; callers
// that need ordering should cancel the ctx passed to Run instead).
func (s *Server[Req, Resp, ErrResp, H]) Shutdown() {
	s.mu.Lock()
	cancel := s.cancelRunning
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
