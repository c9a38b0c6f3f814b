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

package main

import (
	"bytes"
	"context"

	"github.com/xtaci/streamkit"
)

// Data is the request and response type for the echo protocol: it borrows
// the parser's input slice and writes it back unchanged. Ported from
// original_source/examples/echo.rs.
type Data []byte

func (d Data) Compose(dst streamkit.ByteSink) { dst.Write(d) }
func (d Data) ShouldClose() bool              { return false }

// dataParser never rejects input: every byte read is a complete request.
type dataParser struct{}

func (dataParser) Parse(data []byte) (streamkit.ParseOk[Data], *streamkit.ParseError[Data]) {
	return streamkit.ParseOk[Data]{Value: Data(data), Consumed: len(data)}, nil
}

func (p dataParser) Clone() streamkit.Parser[Data, Data] { return p }

// echoHandler hands the request back as the response, matching echo.rs.
type echoHandler struct{}

func (echoHandler) Execute(_ context.Context, req Data) Data { return req }

type echoBuilder struct{}

func (echoBuilder) Build() echoHandler { return echoHandler{} }

// newEchoWorker builds the single worker template for the echo protocol.
func newEchoWorker(backlog int) *streamkit.Worker[Data, Data, Data, echoHandler] {
	return streamkit.NewWorker[Data, Data, Data, echoHandler](echoBuilder{}, dataParser{}, backlog)
}

// Ping/Pong/BadRequest implement the line protocol from
// original_source/examples/ping.rs: a client sends "PING\r\n" and expects
// "PONG\r\n" back; anything else gets "BAD\r\n" and the connection closes.

var (
	pingLine = []byte("PING\r\n")
	pongLine = []byte("PONG\r\n")
	badLine  = []byte("BAD\r\n")
)

type Ping struct{}

type Pong struct{}

func (Pong) Compose(dst streamkit.ByteSink) { dst.Write(pongLine) }
func (Pong) ShouldClose() bool              { return false }

type BadRequest struct{}

func (BadRequest) Compose(dst streamkit.ByteSink) { dst.Write(badLine) }
func (BadRequest) ShouldClose() bool              { return true }

type pingParser struct{}

// Parse matches spec.md's worked example: a line that is not exactly
// "PING\r\n" is rejected with BadRequest and the connection is closed.
// A short read that is still a valid prefix of "PING\r\n" asks for more
// bytes instead of rejecting early, which is the only reading compatible
// with Parser's prefix-determinism contract (see parse.go).
func (pingParser) Parse(data []byte) (streamkit.ParseOk[Ping], *streamkit.ParseError[BadRequest]) {
	n := len(pingLine)
	if len(data) < n {
		if bytes.HasPrefix(pingLine, data) {
			return streamkit.ParseOk[Ping]{}, streamkit.IncompleteErr[BadRequest]()
		}
		return streamkit.ParseOk[Ping]{}, streamkit.NewParseErr(BadRequest{}, 0)
	}
	if !bytes.Equal(data[:n], pingLine) {
		return streamkit.ParseOk[Ping]{}, streamkit.NewParseErr(BadRequest{}, 0)
	}
	return streamkit.ParseOk[Ping]{Value: Ping{}, Consumed: n}, nil
}

func (p pingParser) Clone() streamkit.Parser[Ping, BadRequest] { return p }

type pingHandler struct{}

func (pingHandler) Execute(_ context.Context, _ Ping) Pong { return Pong{} }

type pingBuilder struct{}

func (pingBuilder) Build() pingHandler { return pingHandler{} }

// newPingWorker builds the single worker template for the PING/PONG protocol.
func newPingWorker(backlog int) *streamkit.Worker[Ping, Pong, BadRequest, pingHandler] {
	return streamkit.NewWorker[Ping, Pong, BadRequest, pingHandler](pingBuilder{}, pingParser{}, backlog)
}
