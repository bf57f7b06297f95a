package server

import (
	"io"
	"os"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
	"github.com/jevinskie/nih-sftp-server/internal/handle"
	"github.com/jevinskie/nih-sftp-server/internal/sftperrno"
)

// translatePflags maps SFTP pflags to host os.OpenFile flags.
func translatePflags(p uint32) int {
	var flags int
	switch {
	case p&filexfer.FXFRead != 0 && p&filexfer.FXFWrite != 0:
		flags = os.O_RDWR
	case p&filexfer.FXFRead != 0:
		flags = os.O_RDONLY
	case p&filexfer.FXFWrite != 0:
		flags = os.O_WRONLY
	}
	if p&filexfer.FXFCreat != 0 {
		flags |= os.O_CREATE
	}
	if p&filexfer.FXFTrunc != 0 {
		flags |= os.O_TRUNC
	}
	if p&filexfer.FXFExcl != 0 {
		flags |= os.O_EXCL
	}
	return flags
}

func (s *Server) handleOpen() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	path, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	pflags, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	attrs, err := filexfer.GetAttrs(&s.inBuf)
	if err != nil {
		return err
	}

	mode := os.FileMode(0666)
	if attrs.Flags&filexfer.AttrPermissions != 0 {
		mode = os.FileMode(attrs.Permissions & 0777)
	}

	f, operr := os.OpenFile(string(path), translatePflags(pflags), mode)
	if operr != nil {
		return s.writeStatus(id, sftperrno.FromError(operr))
	}

	v := s.handles.AllocateFile(f)
	if v == 0 {
		f.Close()
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	return s.writeHandle(id, v)
}

func (s *Server) handleClose() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	hs, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}

	v, ok := s.handles.Resolve(string(hs))
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	return s.writeStatus(id, sftperrno.FromError(s.handles.Release(v)))
}

func (s *Server) handleRead() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	hs, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	offset, err := s.inBuf.GetUint64()
	if err != nil {
		return err
	}
	length, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}

	v, ok := handle.ParseHandle(string(hs))
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	f, ok := s.handles.ResolveFile(v)
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}

	preHeader := s.outBuf.SaveCursor()
	if err := s.outBuf.PutByte(byte(filexfer.PacketTypeData)); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(id); err != nil {
		return err
	}

	if _, serr := f.Seek(int64(offset), io.SeekStart); serr != nil {
		s.outBuf.Restore(preHeader)
		return s.writeStatus(id, sftperrno.FromError(serr))
	}

	lenSlot := s.outBuf.SaveCursor()
	if err := s.outBuf.PutUint32(0); err != nil {
		return err
	}

	want := int(length)
	tail := s.outBuf.Tail()
	if want > len(tail) {
		want = len(tail)
	}

	n, rerr := f.Read(tail[:want])
	if n == 0 {
		s.outBuf.Restore(preHeader)
		if rerr != nil && rerr != io.EOF {
			return s.writeStatus(id, sftperrno.FromError(rerr))
		}
		return s.writeStatus(id, filexfer.StatusEOF)
	}

	if err := s.outBuf.Advance(n); err != nil {
		return err
	}
	patch := lenSlot
	s.outBuf.SwapCursor(&patch)
	if err := s.outBuf.PutUint32(uint32(n)); err != nil {
		return err
	}
	s.outBuf.SwapCursor(&patch)
	return nil
}

func (s *Server) handleWrite() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	hs, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}
	offset, err := s.inBuf.GetUint64()
	if err != nil {
		return err
	}
	data, err := s.inBuf.GetData()
	if err != nil {
		return err
	}

	v, ok := handle.ParseHandle(string(hs))
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	f, ok := s.handles.ResolveFile(v)
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}

	if _, serr := f.Seek(int64(offset), io.SeekStart); serr != nil {
		return s.writeStatus(id, sftperrno.FromError(serr))
	}

	n, werr := f.Write(data)
	if werr != nil {
		return s.writeStatus(id, sftperrno.FromError(werr))
	}
	if n != len(data) {
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	return s.writeStatus(id, filexfer.StatusOK)
}
