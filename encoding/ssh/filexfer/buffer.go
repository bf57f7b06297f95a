package filexfer

import (
	"encoding/binary"
	"errors"
)

// ErrBufferBounds is returned by every Get/Put primitive when the operation
// would read or write past the end of the buffer's current window. Every
// occurrence is fatal: either the peer sent a malformed frame, or a
// handler mis-sized its own reply.
var ErrBufferBounds = errors.New("filexfer: buffer bounds violation")

// Buffer is a fixed-capacity byte array paired with a cursor and a
// remaining count. It backs both the process-wide input
// buffer (remaining = unconsumed payload bytes) and the process-wide output
// buffer (remaining = free space left), never growing past MaxPacketSize.
//
// cursor+remaining is constant across the Get/Put calls of a single
// request: for input it equals the length of the frame that was read; for
// output it equals the buffer's total capacity.
type Buffer struct {
	data      [MaxPacketSize]byte
	cursor    int
	remaining int
}

// SavedCursor is a (cursor, remaining) pair captured by SaveCursor, used to
// return to an earlier position in the buffer.
type SavedCursor struct {
	cursor    int
	remaining int
}

// ResetInput points the buffer at a freshly-read frame of n bytes starting
// at offset 0. The caller fills InputSlice(n) before calling ResetInput.
func (b *Buffer) ResetInput(n int) {
	b.cursor = 0
	b.remaining = n
}

// InputSlice returns the first n bytes of the backing array, for a frame
// reader to fill before calling ResetInput.
func (b *Buffer) InputSlice(n int) []byte {
	return b.data[:n]
}

// ResetOutput reserves the first 4 bytes of the buffer for the frame length
// (patched in later by the frame writer) and positions the cursor at
// offset 4, ready for a handler to write its reply.
func (b *Buffer) ResetOutput() {
	b.cursor = 4
	b.remaining = len(b.data) - 4
}

// OutputFrame returns the length-prefix bytes plus everything written since
// ResetOutput, ready to hand to the frame writer once the length prefix has
// been patched in with PutUint32At(0, ...).
func (b *Buffer) OutputFrame() []byte {
	return b.data[:b.cursor]
}

// Cursor returns the buffer's current offset into its backing array.
func (b *Buffer) Cursor() int { return b.cursor }

// Remaining returns the number of bytes left in the buffer's current window.
func (b *Buffer) Remaining() int { return b.remaining }

// SaveCursor captures the current position for a later SwapCursor or Restore.
func (b *Buffer) SaveCursor() SavedCursor {
	return SavedCursor{cursor: b.cursor, remaining: b.remaining}
}

// SwapCursor exchanges the buffer's current position with s. Calling it
// twice around a write returns the buffer to where it was, letting a
// handler back-patch a value it wrote earlier without losing its place.
func (b *Buffer) SwapCursor(s *SavedCursor) {
	b.cursor, s.cursor = s.cursor, b.cursor
	b.remaining, s.remaining = s.remaining, b.remaining
}

// Restore returns the buffer to a previously saved position, discarding
// everything written since.
func (b *Buffer) Restore(s SavedCursor) {
	b.cursor = s.cursor
	b.remaining = s.remaining
}

// PutUint32At writes v at the raw byte offset pos, without touching the
// cursor. Used to back-patch a frame's length prefix once its size is known.
func (b *Buffer) PutUint32At(pos int, v uint32) {
	binary.BigEndian.PutUint32(b.data[pos:pos+4], v)
}

// GetByte consumes one byte.
func (b *Buffer) GetByte() (byte, error) {
	if b.remaining < 1 {
		return 0, ErrBufferBounds
	}
	v := b.data[b.cursor]
	b.cursor++
	b.remaining--
	return v, nil
}

// PutByte appends one byte.
func (b *Buffer) PutByte(v byte) error {
	if b.remaining < 1 {
		return ErrBufferBounds
	}
	b.data[b.cursor] = v
	b.cursor++
	b.remaining--
	return nil
}

// GetUint32 consumes a big-endian uint32.
func (b *Buffer) GetUint32() (uint32, error) {
	if b.remaining < 4 {
		return 0, ErrBufferBounds
	}
	v := binary.BigEndian.Uint32(b.data[b.cursor:])
	b.cursor += 4
	b.remaining -= 4
	return v, nil
}

// PutUint32 appends a big-endian uint32.
func (b *Buffer) PutUint32(v uint32) error {
	if b.remaining < 4 {
		return ErrBufferBounds
	}
	binary.BigEndian.PutUint32(b.data[b.cursor:], v)
	b.cursor += 4
	b.remaining -= 4
	return nil
}

// GetUint64 consumes a big-endian uint64 (hi word then lo word).
func (b *Buffer) GetUint64() (uint64, error) {
	if b.remaining < 8 {
		return 0, ErrBufferBounds
	}
	v := binary.BigEndian.Uint64(b.data[b.cursor:])
	b.cursor += 8
	b.remaining -= 8
	return v, nil
}

// PutUint64 appends a big-endian uint64 (hi word then lo word).
func (b *Buffer) PutUint64(v uint64) error {
	if b.remaining < 8 {
		return ErrBufferBounds
	}
	binary.BigEndian.PutUint64(b.data[b.cursor:], v)
	b.cursor += 8
	b.remaining -= 8
	return nil
}

// GetCString consumes a length-prefixed SSH string and returns a view of it
// aliasing the buffer's backing array. As a side effect it relocates the
// bytes down by 4 (over the length word it just consumed) and writes a NUL
// terminator right after the relocated bytes, in the first of the four
// bytes the shift vacated, so a caller with a
// path-taking C API could use the result directly without copying; the
// returned view is valid only until the next ResetInput.
//
// A declared length exceeding the buffer's remaining bytes is a fatal
// bad-message.
func (b *Buffer) GetCString() ([]byte, error) {
	n, err := b.GetUint32()
	if err != nil {
		return nil, err
	}
	if b.remaining < int(n) {
		return nil, ErrBufferBounds
	}
	start := b.cursor
	copy(b.data[start-4:start-4+int(n)], b.data[start:start+int(n)])
	b.data[start-4+int(n)] = 0
	view := b.data[start-4 : start-4+int(n)]
	b.cursor += int(n)
	b.remaining -= int(n)
	return view, nil
}

// GetData consumes a length-prefixed byte string with no NUL treatment,
// returning a view aliasing the buffer's backing array. Used for WRITE
// payloads, where the bytes are arbitrary and must not be relocated.
func (b *Buffer) GetData() ([]byte, error) {
	n, err := b.GetUint32()
	if err != nil {
		return nil, err
	}
	if b.remaining < int(n) {
		return nil, ErrBufferBounds
	}
	view := b.data[b.cursor : b.cursor+int(n)]
	b.cursor += int(n)
	b.remaining -= int(n)
	return view, nil
}

// PutString appends a length-prefixed SSH string: a uint32 length
// followed by the bytes of s, with no trailing NUL
// on the wire.
func (b *Buffer) PutString(s string) error {
	n := len(s)
	if b.remaining < 4+n {
		return ErrBufferBounds
	}
	binary.BigEndian.PutUint32(b.data[b.cursor:], uint32(n))
	copy(b.data[b.cursor+4:], s)
	b.cursor += 4 + n
	b.remaining -= 4 + n
	return nil
}

// PutBytes appends a length-prefixed byte string.
func (b *Buffer) PutBytes(v []byte) error {
	n := len(v)
	if b.remaining < 4+n {
		return ErrBufferBounds
	}
	binary.BigEndian.PutUint32(b.data[b.cursor:], uint32(n))
	copy(b.data[b.cursor+4:], v)
	b.cursor += 4 + n
	b.remaining -= 4 + n
	return nil
}

// Tail returns the unwritten portion of the buffer, for handlers that write
// directly into it (READ's file contents, READLINK's target) rather than
// through a Put method.
func (b *Buffer) Tail() []byte {
	return b.data[b.cursor : b.cursor+b.remaining]
}

// Advance moves the cursor forward by n bytes after a handler has written
// directly into Tail(). n must not exceed Remaining().
func (b *Buffer) Advance(n int) error {
	if n < 0 || n > b.remaining {
		return ErrBufferBounds
	}
	b.cursor += n
	b.remaining -= n
	return nil
}
