package server

import (
	"os"
	"syscall"

	"github.com/jevinskie/nih-sftp-server/encoding/ssh/filexfer"
)

// attributesFromFileInfo builds the full ATTRS record (SIZE|UIDGID|
// PERMISSIONS|ACMODTIME) for fi. Permissions carries the raw st_mode bits
// (file type included, as attributesFromStat does for READDIR), not just
// the rwxrwxrwx bits fi.Mode().Perm() would give: a reply for a directory
// or symlink must let the client tell it apart from a regular file. On a
// platform whose FileInfo.Sys isn't a *syscall.Stat_t, permissions fall
// back to fi.Mode().Perm(), uid/gid fall back to zero, and atime falls back
// to the modification time.
func attributesFromFileInfo(fi os.FileInfo) filexfer.Attributes {
	a := filexfer.Attributes{
		Flags:       filexfer.AttrSize | filexfer.AttrUIDGID | filexfer.AttrPermissions | filexfer.AttrACModTime,
		Size:        uint64(fi.Size()),
		Permissions: uint32(fi.Mode().Perm()),
		MTime:       uint32(fi.ModTime().Unix()),
	}
	if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
		a.UID = sys.Uid
		a.GID = sys.Gid
		a.Permissions = uint32(sys.Mode)
		a.ATime = uint32(sys.Atim.Sec)
	} else {
		a.ATime = a.MTime
	}
	return a
}
