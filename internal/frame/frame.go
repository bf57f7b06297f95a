// Package frame implements length-prefixed frame I/O over a raw file
// descriptor, with a readiness wait before each blocking read or write so
// the server tolerates descriptors a parent process left non-blocking.
package frame

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
)

// ErrOrderlyShutdown is returned by ReadFrame when the peer closed the
// stream at a frame boundary (zero bytes read before any byte of a new
// frame). It is not an error condition; the caller should exit 0.
var ErrOrderlyShutdown = errors.New("frame: orderly shutdown at frame boundary")

func await(f *os.File, forWrite bool) error {
	events := int16(unix.POLLIN)
	if forWrite {
		events = unix.POLLOUT
	}
	fds := []unix.PollFd{{Fd: int32(f.Fd()), Events: events}}
	for {
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
}

// ReadFrame reads one length-prefixed frame from r into buf's input window.
// L must not exceed filexfer.MaxPacketSize; a larger declared length, a
// read failure other than orderly EOF at a frame boundary, or a short read
// mid-frame, is fatal.
func ReadFrame(r *os.File, buf *filexfer.Buffer) error {
	if err := await(r, false); err != nil {
		return err
	}

	var lenBytes [4]byte
	n, err := io.ReadFull(r, lenBytes[:])
	if n == 0 && (err == io.EOF || errors.Is(err, io.EOF)) {
		return ErrOrderlyShutdown
	}
	if err != nil {
		return err
	}

	length := int(lenBytes[0])<<24 | int(lenBytes[1])<<16 | int(lenBytes[2])<<8 | int(lenBytes[3])
	if length > filexfer.MaxPacketSize {
		return errors.New("frame: declared length exceeds buffer capacity")
	}

	if err := await(r, false); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, buf.InputSlice(length)); err != nil {
		return err
	}
	buf.ResetInput(length)
	return nil
}

// WriteFrame back-patches buf's length prefix (total written minus the 4
// reserved header bytes) and writes the whole frame to w, looping with a
// readiness wait until drained. If the handler wrote nothing beyond the
// reserved header, nothing is written: the request produced no reply.
func WriteFrame(w *os.File, buf *filexfer.Buffer) error {
	total := buf.Cursor()
	if total <= 4 {
		return nil
	}
	buf.PutUint32At(0, uint32(total-4))

	frame := buf.OutputFrame()
	for len(frame) > 0 {
		if err := await(w, true); err != nil {
			return err
		}
		n, err := w.Write(frame)
		if err != nil {
			return err
		}
		frame = frame[n:]
	}
	return nil
}
