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
	"log"
	"net"
	"time"

	"github.com/xtaci/smux"
)

// BuildSmuxConfig constructs and validates an smux.Config from the handful
// of knobs kcptun's std/smuxcfg.go exposes on its CLI.
func BuildSmuxConfig(version, maxReceiveBuffer, maxStreamBuffer, maxFrameSize int, keepAlive time.Duration) (*smux.Config, error) {
	cfg := smux.DefaultConfig()
	cfg.Version = version
	cfg.MaxReceiveBuffer = maxReceiveBuffer
	cfg.MaxStreamBuffer = maxStreamBuffer
	cfg.MaxFrameSize = maxFrameSize
	cfg.KeepAliveInterval = keepAlive

	if err := smux.VerifyConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serveMuxSession terminates conn as an smux server session and hands every
// accepted stream to dispatch, which submits it to a worker exactly like a
// plain TCP connection -- one underlying socket now carries many
// independent request/response conversations, each still driven one
// request at a time (spec.md's no-pipelining invariant is per-stream, not
// per-socket). The session ends, closing every stream it opened, when
// AcceptStream first errors.
func serveMuxSession(conn net.Conn, cfg *smux.Config, dispatch func(net.Conn)) {
	session, err := smux.Server(conn, cfg)
	if err != nil {
		log.Println("streamkit: smux.Server:", err)
		conn.Close()
		return
	}
	defer session.Close()

	for {
		stream, err := session.AcceptStream()
		if err != nil {
			return
		}
		dispatch(stream)
	}
}
