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

// Package streamkit is a small byte-stream request/response server
// framework. It accepts TCP (or KCP, see transport_kcp.go) connections,
// hands each one to a worker, and drives a read -> parse -> execute -> write
// loop using a caller-supplied Parser and Handler. Framing, protocol
// semantics, and error responses are entirely up to the Parser/Handler pair;
// streamkit only owns the buffering, dispatch, and shutdown plumbing.
package streamkit

const (
	// DefaultRdbufCapacity is the initial size of a connection's read buffer.
	DefaultRdbufCapacity = 16384
	// DefaultWrbufCapacity is the initial size of a connection's write buffer.
	DefaultWrbufCapacity = 16384
	// DefaultReadSize is the minimum free-tail size requested before a socket read.
	DefaultReadSize = 2048
)
