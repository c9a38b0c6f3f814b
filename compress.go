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
	"net"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// compConn wraps an accepted net.Conn with transparent snappy framing in
// both directions (SPEC_FULL.md S3.1); Server.wrapAccepted is the only
// caller. Unlike kcptun's std/comp.go CompStream, this embeds net.Conn
// directly instead of holding it in a named field and redeclaring every
// passthrough method (Close, LocalAddr, RemoteAddr, the three deadline
// setters) -- the connection loop in worker.go calls Read, Write and Close
// on a wrapped connection, and Read and Write are the only two methods
// that need to change behavior.
type compConn struct {
	net.Conn
	w *snappy.Writer
	r *snappy.Reader
}

// newCompConn wraps conn with snappy framing in both directions.
func newCompConn(conn net.Conn) *compConn {
	return &compConn{Conn: conn, w: snappy.NewBufferedWriter(conn), r: snappy.NewReader(conn)}
}

func (c *compConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *compConn) Write(p []byte) (int, error) {
	if _, err := c.w.Write(p); err != nil {
		return 0, errors.WithStack(err)
	}
	if err := c.w.Flush(); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(p), nil
}
