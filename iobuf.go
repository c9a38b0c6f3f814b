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

// IoBuf is a growable byte buffer with head/tail cursors. The filled region
// is buf[head:tail]; the free tail is buf[tail:cap(buf)]. It is not safe for
// concurrent use -- a single connection's goroutine owns it exclusively.
type IoBuf struct {
	buf  []byte
	head int
	tail int
}

// NewIoBuf allocates a zero-filled IoBuf with the given initial capacity.
func NewIoBuf(capacity int) *IoBuf {
	return &IoBuf{buf: make([]byte, capacity)}
}

// Capacity returns the length of the backing storage.
func (b *IoBuf) Capacity() int {
	return len(b.buf)
}

// Len returns the number of filled, unconsumed bytes.
func (b *IoBuf) Len() int {
	return b.tail - b.head
}

// Extra returns the number of free bytes at the tail.
func (b *IoBuf) Extra() int {
	return len(b.buf) - b.tail
}

// IsEmpty reports whether there are no unconsumed bytes.
func (b *IoBuf) IsEmpty() bool {
	return b.head == b.tail
}

// AsSlice returns the filled region [head, tail). The returned slice is only
// valid until the next Consume, Advance, or Remainder call.
func (b *IoBuf) AsSlice() []byte {
	return b.buf[b.head:b.tail]
}

// AsSliceMut returns a mutable view of the filled region. Callers must not
// hold both AsSlice and AsSliceMut views at once -- aliasing discipline is
// the caller's responsibility, as with any Go slice.
func (b *IoBuf) AsSliceMut() []byte {
	return b.buf[b.head:b.tail]
}

// Consume advances head by n, which must be <= Len(). If more than half of
// the filled region has been consumed, the remaining live bytes are copied
// down to offset 0 and the cursors are reset; this bounds wasted prefix
// space and amortizes the cost of the copy.
func (b *IoBuf) Consume(n int) {
	if n > b.Len() {
		panic("streamkit: IoBuf.Consume: n exceeds Len")
	}

	b.head += n

	if b.head > b.Len() {
		live := b.tail - b.head
		copy(b.buf, b.buf[b.head:b.tail])
		b.tail = live
		b.head = 0
	}
}

// Advance marks the next n bytes of the free tail as filled. n must be
// <= Extra(). Call this after a successful socket read.
func (b *IoBuf) Advance(n int) {
	if n > b.Extra() {
		panic("streamkit: IoBuf.Advance: n exceeds Extra")
	}
	b.tail += n
}

// Remainder ensures at least `minimum` free bytes are available at the tail,
// growing the backing storage geometrically if necessary, and returns the
// free-tail slice. Existing filled bytes [head, tail) keep their indices.
func (b *IoBuf) Remainder(minimum int) []byte {
	if b.Extra() < minimum {
		newcap := len(b.buf) * 2
		if grown := len(b.buf) + minimum; grown > newcap {
			newcap = grown
		}
		grown := make([]byte, newcap)
		copy(grown, b.buf)
		b.buf = grown
	}
	return b.buf[b.tail:]
}

// readFromFillerMinimum is the minimum free-tail size ChunkMut requests.
// It is half of DefaultReadSize, which the connection loop itself passes
// to Remainder before each socket read.
const readFromFillerMinimum = 1024

// ChunkMut satisfies the contract expected by writers that want a
// self-growing destination slice (the bytes.Buffer-style "give me some
// room" convention), returning at least readFromFillerMinimum free bytes.
func (b *IoBuf) ChunkMut() []byte {
	return b.Remainder(readFromFillerMinimum)
}
