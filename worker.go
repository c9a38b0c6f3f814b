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
	"bytes"
	"context"
	"io"
	"net"
	"runtime"
	"sync"
)

// stepResult tags the outcome of one parse attempt inside drive's loop.
type stepResult int

const (
	stepOk stepResult = iota
	stepIncomplete
	stepFatal
	stepParseErr
)

// Worker is an immutable (handlerBuilder, parser) pair. A Worker owns a
// dispatch goroutine that receives accepted connections and spawns one
// goroutine per connection to drive it -- connection affinity never
// changes after a connection is submitted, matching spec.md's "never
// migrated" requirement. See SPEC_FULL.md S1.1 for why this is a goroutine
// dispatcher rather than a literal one-OS-thread cooperative runtime.
type Worker[Req any, Resp Compose, ErrResp Compose, H Handler[Req, Resp]] struct {
	builder HandlerBuilder[H]
	parser  Parser[Req, ErrResp]
	stats   *Stats

	conns chan net.Conn

	mu    sync.Mutex
	live  map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewWorker builds a Worker from a handler builder and a parser template.
// backlog sizes the channel of accepted-but-not-yet-dispatched connections.
func NewWorker[Req any, Resp Compose, ErrResp Compose, H Handler[Req, Resp]](
	builder HandlerBuilder[H], parser Parser[Req, ErrResp], backlog int,
) *Worker[Req, Resp, ErrResp, H] {
	return &Worker[Req, Resp, ErrResp, H]{
		builder: builder,
		parser:  parser,
		conns:   make(chan net.Conn, backlog),
		live:    make(map[net.Conn]struct{}),
	}
}

// WithStats attaches a Stats sink the worker will update as it drives
// connections. Passing nil disables metrics collection (the default).
func (w *Worker[Req, Resp, ErrResp, H]) WithStats(stats *Stats) *Worker[Req, Resp, ErrResp, H] {
	w.stats = stats
	return w
}

// Submit hands an accepted connection to this worker. It never blocks past
// the channel's backlog capacity; a full backlog applies the same
// read-side backpressure spec.md S5 describes, just one layer earlier.
func (w *Worker[Req, Resp, ErrResp, H]) Submit(conn net.Conn) {
	w.conns <- conn
}

// Launch starts the worker's dispatch goroutine. watcher is the shutdown
// signal shared by the whole Server. Launch returns two channels: ready
// closes once the dispatch goroutine is running, and done closes once the
// dispatcher has stopped accepting new connections, force-closed any
// still-live or still-queued ones, and every in-flight drive() goroutine
// has returned -- the Go analogue of "the worker's OS thread joins".
func (w *Worker[Req, Resp, ErrResp, H]) Launch(watcher Watcher) (ready <-chan struct{}, done <-chan struct{}) {
	readyCh := make(chan struct{})
	doneCh := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		// Pinning the dispatcher goroutine to an OS thread is not required
		// for correctness under Go's M:N scheduler; it is kept purely for
		// texture/cache-affinity parity with the pinned-thread design this
		// is ported from. See SPEC_FULL.md S1.1.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		close(readyCh)

		for {
			select {
			case conn := <-w.conns:
				w.track(conn)
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer w.untrack(conn)
					w.drive(ctx, conn)
				}()
			case <-watcher.Done():
				cancel()
				w.closeAllLive()
				// Connections still waiting in the backlog were never
				// dispatched; close them too.
				for queued := true; queued; {
					select {
					case conn := <-w.conns:
						conn.Close()
					default:
						queued = false
					}
				}
				w.wg.Wait()
				close(doneCh)
				return
			}
		}
	}()

	return readyCh, doneCh
}

func (w *Worker[Req, Resp, ErrResp, H]) track(conn net.Conn) {
	w.mu.Lock()
	w.live[conn] = struct{}{}
	w.mu.Unlock()
}

func (w *Worker[Req, Resp, ErrResp, H]) untrack(conn net.Conn) {
	w.mu.Lock()
	delete(w.live, conn)
	w.mu.Unlock()
}

func (w *Worker[Req, Resp, ErrResp, H]) closeAllLive() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for conn := range w.live {
		conn.Close()
	}
}

// drive implements spec.md S4.4's connection loop: interleave a read into
// the growable receive buffer with an incremental parse, an asynchronous
// handler call, and a response write, until the handler requests close,
// the parser is Fatal, or the socket errors.
func (w *Worker[Req, Resp, ErrResp, H]) drive(ctx context.Context, conn net.Conn) {
	if w.stats != nil {
		w.stats.connectionAccepted()
	}
	defer conn.Close()

	handler := w.builder.Build()
	parser := w.parser.Clone()

	rdbuf := NewIoBuf(DefaultRdbufCapacity)
	wrbuf := bytes.NewBuffer(make([]byte, 0, DefaultWrbufCapacity))

	unparsedExtra := false
	exit := false
	eof := false

	for !exit {
		if !eof && (!unparsedExtra || rdbuf.IsEmpty()) {
			dst := rdbuf.Remainder(DefaultReadSize)
			n, rerr := conn.Read(dst)
			if n > 0 {
				rdbuf.Advance(n)
				if w.stats != nil {
					w.stats.bytesRead(n)
				}
			}
			if rerr != nil && rerr != io.EOF {
				// A genuine socket error (not EOF): spec.md S7 point 4 requires
				// dropping the connection silently, with no further parse
				// attempt or response, regardless of what's still buffered.
				return
			}
			if rerr == io.EOF {
				if rdbuf.IsEmpty() {
					// Clean close: nothing to parse, nothing to respond with.
					return
				}
				// EOF arrived together with, or right after, some bytes.
				// There may be one final request sitting in the buffer;
				// spec.md S9 asks for exactly one more parse attempt before
				// giving up.
				eof = true
			}
			unparsedExtra = true
		}

		consumed, result := w.step(ctx, parser, rdbuf, handler, wrbuf, &exit)
		switch result {
		case stepOk:
			rdbuf.Consume(consumed)
		case stepParseErr:
			rdbuf.Consume(consumed)
			if w.stats != nil {
				w.stats.parseError()
			}
		case stepIncomplete:
			if eof {
				// Final attempt after EOF still wants more bytes: there
				// will never be more. Close without responding.
				return
			}
			unparsedExtra = false
		case stepFatal:
			if w.stats != nil {
				w.stats.fatalParse()
			}
			return
		}

		if wrbuf.Len() > 0 {
			if _, werr := conn.Write(wrbuf.Bytes()); werr != nil {
				return
			}
			if w.stats != nil {
				w.stats.bytesWritten(wrbuf.Len())
			}
			wrbuf.Reset()
		}

		if eof && rdbuf.IsEmpty() {
			return
		}
	}
}

// step performs exactly one parser.Parse call against the buffer's current
// contents, running the handler and composing its response when a request
// is available. The borrowed request (ok.Value, which may alias rdbuf's
// backing array) is never retained past this call: the response is
// composed into wrbuf -- a distinct allocation -- before the caller
// consumes rdbuf, so the two buffers never alias.
func (w *Worker[Req, Resp, ErrResp, H]) step(
	ctx context.Context,
	parser Parser[Req, ErrResp],
	rdbuf *IoBuf,
	handler H,
	wrbuf *bytes.Buffer,
	exit *bool,
) (int, stepResult) {
	ok, perr := parser.Parse(rdbuf.AsSlice())
	if perr == nil {
		resp := handler.Execute(ctx, ok.Value)
		resp.Compose(wrbuf)
		*exit = resp.ShouldClose()
		if w.stats != nil {
			w.stats.requestHandled()
		}
		return ok.Consumed, stepOk
	}

	switch perr.Outcome {
	case Fatal:
		return 0, stepFatal
	case Incomplete:
		return 0, stepIncomplete
	default: // ParseErr
		perr.Response.Compose(wrbuf)
		*exit = perr.Response.ShouldClose()
		return perr.Consumed, stepParseErr
	}
}
