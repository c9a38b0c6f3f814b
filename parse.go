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

// ParseOutcome tags what happened on a parse attempt that did not produce a
// value. Incomplete means "read more and try again"; Fatal means "the
// stream is unrecoverable, close without responding"; ParseErr means "write
// response, discard Consumed bytes, maybe close" (spec.md ParseError).
type ParseOutcome int

const (
	// Incomplete signals not enough bytes were available to decide.
	Incomplete ParseOutcome = iota
	// Fatal signals the connection must be dropped without a response.
	Fatal
	// ParseErr signals a recoverable protocol error carrying a response.
	ParseErr
)

// ParseOk is the value plus byte-count a successful parse produces
// (spec.md's ParseOk<T>).
type ParseOk[T any] struct {
	Value    T
	Consumed int
}

// ParseError is returned by Parser.Parse when it does not produce a value.
// Outcome selects which of Response/Consumed are meaningful: Incomplete and
// Fatal use neither, ParseErr uses both.
type ParseError[E Compose] struct {
	Outcome  ParseOutcome
	Response E
	Consumed int
}

func (e *ParseError[E]) Error() string {
	switch e.Outcome {
	case Incomplete:
		return "streamkit: incomplete"
	case Fatal:
		return "streamkit: fatal parse error"
	default:
		return "streamkit: parse error"
	}
}

// IncompleteErr builds the shared-shape ParseError for ParseOutcome
// Incomplete; it carries no response and no consumed count.
func IncompleteErr[E Compose]() *ParseError[E] {
	return &ParseError[E]{Outcome: Incomplete}
}

// FatalErr builds the shared-shape ParseError for ParseOutcome Fatal.
func FatalErr[E Compose]() *ParseError[E] {
	return &ParseError[E]{Outcome: Fatal}
}

// NewParseErr builds a recoverable parse error carrying a response to
// compose and the number of bytes the parser wants discarded.
func NewParseErr[E Compose](response E, consumed int) *ParseError[E] {
	return &ParseError[E]{Outcome: ParseErr, Response: response, Consumed: consumed}
}

// Parser is an incremental byte-to-request decoder. Implementations must be
// safe to call from any single goroutine (one parser clone per connection;
// streamkit never calls Parse concurrently on the same clone) and must not
// retain references into data beyond the request returned in ParseOk --
// that request's lifetime is bounded by the byte slice streamkit passed in,
// which is invalidated by the next IoBuf mutation.
//
// Determinism on prefix: if Parse(b) returns ParseOk{_, n}, then Parse(b')
// for any b' sharing b's first n bytes must return the same result (or
// Incomplete if b' is shorter). streamkit only calls Parse again, after an
// Incomplete, once strictly more bytes have been read, with one exception:
// when the peer then reaches EOF, Parse gets one last call on the same
// bytes before the connection closes -- see Worker.drive.
type Parser[Req any, ErrResp Compose] interface {
	Parse(data []byte) (ParseOk[Req], *ParseError[ErrResp])
	// Clone returns an independent copy of the parser for a new connection.
	// Parsers with no per-connection state may return themselves.
	Clone() Parser[Req, ErrResp]
}

// NoResponse is the "this parser's error path is statically unreachable"
// response type. There is no Go equivalent of Rust's uninhabited
// std::convert::Infallible, so Compose panics instead of matching on an
// impossible case -- callers should never construct a NoResponse value.
type NoResponse struct{}

// Compose panics: NoResponse must never actually be composed.
func (NoResponse) Compose(_ ByteSink) {
	panic("streamkit: NoResponse.Compose called; parser's error path is unreachable")
}

// ShouldClose panics for the same reason as Compose.
func (NoResponse) ShouldClose() bool {
	panic("streamkit: NoResponse.ShouldClose called; parser's error path is unreachable")
}
