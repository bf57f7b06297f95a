package server

import (
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
)

type client struct {
	t    *testing.T
	w    *os.File
	r    *os.File
	done chan error
}

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putString(buf []byte, s string) []byte {
	buf = putU32(buf, uint32(len(s)))
	return append(buf, s...)
}

func (c *client) send(payload []byte) {
	frame := putU32(nil, uint32(len(payload)))
	frame = append(frame, payload...)
	_, err := c.w.Write(frame)
	require.NoError(c.t, err)
}

// recv reads one reply frame and returns its raw payload (opcode included).
func (c *client) recv() []byte {
	var lenBytes [4]byte
	_, err := io.ReadFull(c.r, lenBytes[:])
	require.NoError(c.t, err)
	n := binary.BigEndian.Uint32(lenBytes[:])
	payload := make([]byte, n)
	_, err = io.ReadFull(c.r, payload)
	require.NoError(c.t, err)
	return payload
}

func newTestServer(t *testing.T) *client {
	t.Helper()
	csR, csW, err := os.Pipe()
	require.NoError(t, err)
	scR, scW, err := os.Pipe()
	require.NoError(t, err)

	srv := New(csR, scW, slog.New(slog.NewTextHandler(io.Discard, nil)))
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	t.Cleanup(func() {
		csW.Close()
		scR.Close()
	})

	return &client{t: t, w: csW, r: scR, done: done}
}

func init_(c *client) {
	payload := []byte{byte(filexfer.PacketTypeInit)}
	payload = putU32(payload, 3)
	c.send(payload)
	reply := c.recv()
	require.Equal(c.t, byte(filexfer.PacketTypeVersion), reply[0])
}

func statusOf(t *testing.T, reply []byte) (id uint32, code uint32) {
	require.Equal(t, byte(filexfer.PacketTypeStatus), reply[0])
	id = binary.BigEndian.Uint32(reply[1:5])
	code = binary.BigEndian.Uint32(reply[5:9])
	return
}

func TestHandshake(t *testing.T) {
	c := newTestServer(t)
	payload := []byte{byte(filexfer.PacketTypeInit)}
	payload = putU32(payload, 3)
	c.send(payload)

	reply := c.recv()
	assert.Equal(t, byte(filexfer.PacketTypeVersion), reply[0])
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(reply[1:5]))
}

func TestOpenReadClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	c := newTestServer(t)
	init_(c)

	open := []byte{byte(filexfer.PacketTypeOpen)}
	open = putU32(open, 1)
	open = putString(open, path)
	open = putU32(open, filexfer.FXFRead)
	open = putU32(open, 0)
	c.send(open)

	reply := c.recv()
	require.Equal(t, byte(filexfer.PacketTypeHandle), reply[0])
	hlen := binary.BigEndian.Uint32(reply[5:9])
	handle := string(reply[9 : 9+hlen])
	assert.Equal(t, "01", handle)

	read := []byte{byte(filexfer.PacketTypeRead)}
	read = putU32(read, 2)
	read = putString(read, handle)
	read = putU64(read, 0)
	read = putU32(read, 100)
	c.send(read)

	reply = c.recv()
	require.Equal(t, byte(filexfer.PacketTypeData), reply[0])
	dlen := binary.BigEndian.Uint32(reply[5:9])
	assert.Equal(t, "hello", string(reply[9:9+dlen]))

	read2 := []byte{byte(filexfer.PacketTypeRead)}
	read2 = putU32(read2, 3)
	read2 = putString(read2, handle)
	read2 = putU64(read2, 5)
	read2 = putU32(read2, 100)
	c.send(read2)

	reply = c.recv()
	id, code := statusOf(t, reply)
	assert.Equal(t, uint32(3), id)
	assert.Equal(t, uint32(filexfer.StatusEOF), code)

	closePkt := []byte{byte(filexfer.PacketTypeClose)}
	closePkt = putU32(closePkt, 4)
	closePkt = putString(closePkt, handle)
	c.send(closePkt)

	reply = c.recv()
	id, code = statusOf(t, reply)
	assert.Equal(t, uint32(4), id)
	assert.Equal(t, uint32(filexfer.StatusOK), code)
}

func TestOpenNonexistent(t *testing.T) {
	c := newTestServer(t)
	init_(c)

	open := []byte{byte(filexfer.PacketTypeOpen)}
	open = putU32(open, 7)
	open = putString(open, "/nonexistent/path/really")
	open = putU32(open, filexfer.FXFRead)
	open = putU32(open, 0)
	c.send(open)

	reply := c.recv()
	id, code := statusOf(t, reply)
	assert.Equal(t, uint32(7), id)
	assert.Equal(t, uint32(filexfer.StatusNoSuchFile), code)
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b")

	c := newTestServer(t)
	init_(c)

	open := []byte{byte(filexfer.PacketTypeOpen)}
	open = putU32(open, 1)
	open = putString(open, path)
	open = putU32(open, filexfer.FXFWrite|filexfer.FXFCreat|filexfer.FXFTrunc)
	open = putU32(open, filexfer.AttrPermissions)
	open = putU32(open, 0644)
	c.send(open)

	reply := c.recv()
	require.Equal(t, byte(filexfer.PacketTypeHandle), reply[0])
	hlen := binary.BigEndian.Uint32(reply[5:9])
	handle := string(reply[9 : 9+hlen])

	write := []byte{byte(filexfer.PacketTypeWrite)}
	write = putU32(write, 2)
	write = putString(write, handle)
	write = putU64(write, 0)
	write = putString(write, "abc")
	c.send(write)

	reply = c.recv()
	_, code := statusOf(t, reply)
	assert.Equal(t, uint32(filexfer.StatusOK), code)

	closePkt := []byte{byte(filexfer.PacketTypeClose)}
	closePkt = putU32(closePkt, 3)
	closePkt = putString(closePkt, handle)
	c.send(closePkt)
	c.recv()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), fi.Mode().Perm())
}

func TestReaddirTwoEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "y"), nil, 0644))

	c := newTestServer(t)
	init_(c)

	opendir := []byte{byte(filexfer.PacketTypeOpendir)}
	opendir = putU32(opendir, 1)
	opendir = putString(opendir, dir)
	c.send(opendir)

	reply := c.recv()
	require.Equal(t, byte(filexfer.PacketTypeHandle), reply[0])
	hlen := binary.BigEndian.Uint32(reply[5:9])
	handle := string(reply[9 : 9+hlen])

	readdir := []byte{byte(filexfer.PacketTypeReaddir)}
	readdir = putU32(readdir, 2)
	readdir = putString(readdir, handle)
	c.send(readdir)

	reply = c.recv()
	require.Equal(t, byte(filexfer.PacketTypeName), reply[0])
	count := binary.BigEndian.Uint32(reply[5:9])
	assert.Equal(t, uint32(2), count)

	readdir2 := []byte{byte(filexfer.PacketTypeReaddir)}
	readdir2 = putU32(readdir2, 3)
	readdir2 = putString(readdir2, handle)
	c.send(readdir2)

	reply = c.recv()
	id, code := statusOf(t, reply)
	assert.Equal(t, uint32(3), id)
	assert.Equal(t, uint32(filexfer.StatusEOF), code)
}

func TestUnknownOpcode(t *testing.T) {
	c := newTestServer(t)
	init_(c)

	payload := []byte{250}
	payload = putU32(payload, 42)
	c.send(payload)

	reply := c.recv()
	id, code := statusOf(t, reply)
	assert.Equal(t, uint32(42), id)
	assert.Equal(t, uint32(filexfer.StatusOPUnsupported), code)
}

func TestDuplicateInitIsFatal(t *testing.T) {
	c := newTestServer(t)
	init_(c)

	payload := []byte{byte(filexfer.PacketTypeInit)}
	payload = putU32(payload, 3)
	c.send(payload)

	// a second INIT is a protocol violation; Serve exits with an error
	// instead of producing a reply.
	err := <-c.done
	assert.Error(t, err)
}
