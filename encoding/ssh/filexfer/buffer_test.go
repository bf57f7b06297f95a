package filexfer

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPrimitiveRoundTrip(t *testing.T) {
	var b Buffer
	b.ResetOutput()

	require.NoError(t, b.PutByte(0x42))
	require.NoError(t, b.PutUint32(0x29B7F4AA))
	require.NoError(t, b.PutUint64(0x0102030405060708))
	require.NoError(t, b.PutString("hello"))

	frame := b.OutputFrame()
	assert.Equal(t, []byte{0x29, 0xB7, 0xF4, 0xAA}, frame[5:9], "endianness: %s", spew.Sdump(frame))

	var in Buffer
	copy(in.InputSlice(len(frame)-4), frame[4:])
	in.ResetInput(len(frame) - 4)

	got, err := in.GetByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), got)

	u32, err := in.GetUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x29B7F4AA), u32)

	u64, err := in.GetUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	str, err := in.GetCString()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(str))
	assert.Equal(t, byte(0), str[:len(str)+1][len(str)])
}

func TestBufferBoundsViolationIsFatal(t *testing.T) {
	var b Buffer
	b.ResetInput(2)

	_, err := b.GetUint32()
	assert.ErrorIs(t, err, ErrBufferBounds)
}

func TestBufferGetCStringRejectsOverlongDeclaredLength(t *testing.T) {
	var b Buffer
	data := b.InputSlice(8)
	data[0], data[1], data[2], data[3] = 0, 0, 0, 100
	b.ResetInput(8)

	_, err := b.GetCString()
	assert.ErrorIs(t, err, ErrBufferBounds)
}

func TestBufferSwapCursorBackPatchesCount(t *testing.T) {
	var b Buffer
	b.ResetOutput()

	countSlot := b.SaveCursor()
	require.NoError(t, b.PutUint32(0))

	require.NoError(t, b.PutString("a"))
	require.NoError(t, b.PutString("b"))
	count := uint32(2)

	saved := b.SaveCursor()
	b.SwapCursor(&countSlot)
	require.NoError(t, b.PutUint32(count))
	b.SwapCursor(&countSlot)
	assert.Equal(t, saved, b.SaveCursor())
}

func TestBufferRestoreDiscardsPartialWrite(t *testing.T) {
	var b Buffer
	b.ResetOutput()

	s1 := b.SaveCursor()
	require.NoError(t, b.PutByte(0xFF))
	require.NoError(t, b.PutString("discarded"))

	b.Restore(s1)
	assert.Equal(t, 4, b.Cursor())
}

func TestBufferTailAndAdvance(t *testing.T) {
	var b Buffer
	b.ResetOutput()

	n := copy(b.Tail(), []byte("payload"))
	require.NoError(t, b.Advance(n))
	assert.Equal(t, "payload", string(b.OutputFrame()[4:]))

	assert.ErrorIs(t, b.Advance(MaxPacketSize), ErrBufferBounds)
}

func TestBufferGetDataDoesNotRelocate(t *testing.T) {
	var b Buffer
	data := b.InputSlice(9)
	data[0], data[1], data[2], data[3] = 0, 0, 0, 3
	copy(data[4:], []byte{0xDE, 0xAD, 0xBE})
	b.ResetInput(9)

	view, err := b.GetData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE}, view)
}
