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

import "context"

// ByteSink is where a Compose implementation writes its serialized bytes.
// *bytes.Buffer satisfies it; streamkit's connection loop passes the
// per-connection write buffer.
type ByteSink interface {
	Write(p []byte) (n int, err error)
	WriteByte(c byte) error
	WriteString(s string) (n int, err error)
}

// Compose serializes a response onto the wire.
type Compose interface {
	// Compose writes this value's wire representation into dst.
	Compose(dst ByteSink)
	// ShouldClose requests the connection be closed after this response is
	// written. Most responses return false.
	ShouldClose() bool
}

// Handler is a per-connection asynchronous request executor. streamkit
// holds exactly one outstanding Execute call per connection at a time;
// Execute may block (network calls, channel receives, etc.) without
// affecting other connections, since each connection runs on its own
// goroutine.
type Handler[Req any, Resp Compose] interface {
	Execute(ctx context.Context, req Req) Resp
}

// HandlerBuilder constructs one Handler per accepted connection. Build is
// called once per connection and may be called concurrently from many
// worker goroutines, so implementations must be safe for concurrent use.
type HandlerBuilder[H any] interface {
	Build() H
}
