package server

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
	"github.com/jevinskie/nih-sftp-server/internal/handle"
	"github.com/jevinskie/nih-sftp-server/internal/sftperrno"
)

func (s *Server) handleOpendir() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	path, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}

	f, operr := os.Open(string(path))
	if operr != nil {
		return s.writeStatus(id, sftperrno.FromError(operr))
	}
	entries, rerr := f.ReadDir(-1)
	if rerr != nil {
		f.Close()
		return s.writeStatus(id, sftperrno.FromError(rerr))
	}

	v := s.handles.AllocateDir(&handle.Entry{Dir: f, Entries: entries})
	if v == 0 {
		f.Close()
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	return s.writeHandle(id, v)
}

// maxAttrsBytes is the worst-case encoded size of a full ATTRS record:
// flags(4) + size(8) + uid(4) + gid(4) + permissions(4) + atime(4) + mtime(4).
const maxAttrsBytes = 32

func (s *Server) handleReaddir() error {
	id, err := s.inBuf.GetUint32()
	if err != nil {
		return err
	}
	hs, err := s.inBuf.GetCString()
	if err != nil {
		return err
	}

	v, ok := handle.ParseHandle(string(hs))
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}
	dir, ok := s.handles.ResolveDir(v)
	if !ok {
		return s.writeStatus(id, filexfer.StatusFailure)
	}

	s1 := s.outBuf.SaveCursor()
	if err := s.outBuf.PutByte(byte(filexfer.PacketTypeName)); err != nil {
		return err
	}
	if err := s.outBuf.PutUint32(id); err != nil {
		return err
	}

	s2 := s.outBuf.SaveCursor()
	if err := s.outBuf.PutUint32(0); err != nil {
		return err
	}

	var count uint32
	for dir.Cursor < len(dir.Entries) {
		p := dir.Cursor
		entry := dir.Entries[p]
		dir.Cursor++

		name := entry.Name()

		var st unix.Stat_t
		if ferr := unix.Fstatat(int(dir.Dir.Fd()), name, &st, unix.AT_SYMLINK_NOFOLLOW); ferr != nil {
			continue
		}

		bound := (4+len(name))*2 + maxAttrsBytes
		if s.outBuf.Remaining() >= bound {
			if err := s.outBuf.PutString(name); err != nil {
				return err
			}
			if err := s.outBuf.PutString(name); err != nil {
				return err
			}
			if err := filexfer.PutAttrs(&s.outBuf, attributesFromStat(&st)); err != nil {
				return err
			}
			count++
			continue
		}

		if count > 0 {
			dir.Cursor = p
			break
		}
		// Too big to ever fit in one reply; skip it and keep going.
	}

	if count > 0 {
		patch := s2
		s.outBuf.SwapCursor(&patch)
		if err := s.outBuf.PutUint32(count); err != nil {
			return err
		}
		s.outBuf.SwapCursor(&patch)
		return nil
	}

	s.outBuf.Restore(s1)
	return s.writeStatus(id, filexfer.StatusEOF)
}

func attributesFromStat(st *unix.Stat_t) filexfer.Attributes {
	return filexfer.Attributes{
		Flags:       filexfer.AttrSize | filexfer.AttrUIDGID | filexfer.AttrPermissions | filexfer.AttrACModTime,
		Size:        uint64(st.Size),
		UID:         st.Uid,
		GID:         st.Gid,
		Permissions: uint32(st.Mode),
		ATime:       uint32(st.Atim.Sec),
		MTime:       uint32(st.Mtim.Sec),
	}
}
