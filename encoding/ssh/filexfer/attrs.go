package filexfer

import "time"

// Attribute flags, per draft-ietf-secsh-filexfer-02 section 5.
const (
	AttrSize        = uint32(1 << 0)
	AttrUIDGID      = uint32(1 << 1)
	AttrPermissions = uint32(1 << 2)
	AttrACModTime   = uint32(1 << 3)
	AttrExtended    = uint32(1 << 31)
)

// Attributes is the SSH_FXP_ATTRS payload: a flags word
// followed by whichever fields the flags select, always in size, uid/gid,
// permissions, atime/mtime order.
type Attributes struct {
	Flags       uint32
	Size        uint64
	UID         uint32
	GID         uint32
	Permissions uint32
	ATime       uint32
	MTime       uint32
}

// GetAttrs decodes an Attributes value from b. Any extended-type/data pairs
// present (signaled by AttrExtended) are consumed and discarded: this server
// never produces or interprets extended attributes.
func GetAttrs(b *Buffer) (Attributes, error) {
	var a Attributes

	flags, err := b.GetUint32()
	if err != nil {
		return a, err
	}
	a.Flags = flags

	if flags&AttrSize != 0 {
		a.Size, err = b.GetUint64()
		if err != nil {
			return a, err
		}
	}
	if flags&AttrUIDGID != 0 {
		a.UID, err = b.GetUint32()
		if err != nil {
			return a, err
		}
		a.GID, err = b.GetUint32()
		if err != nil {
			return a, err
		}
	}
	if flags&AttrPermissions != 0 {
		a.Permissions, err = b.GetUint32()
		if err != nil {
			return a, err
		}
	}
	if flags&AttrACModTime != 0 {
		a.ATime, err = b.GetUint32()
		if err != nil {
			return a, err
		}
		a.MTime, err = b.GetUint32()
		if err != nil {
			return a, err
		}
	}
	if flags&AttrExtended != 0 {
		count, err := b.GetUint32()
		if err != nil {
			return a, err
		}
		for i := uint32(0); i < count; i++ {
			if _, err := b.GetCString(); err != nil {
				return a, err
			}
			if _, err := b.GetData(); err != nil {
				return a, err
			}
		}
	}

	return a, nil
}

// PutAttrs encodes a into b. Extended attributes are never produced, so the
// AttrExtended bit is masked out of a.Flags regardless of its caller-set value.
func PutAttrs(b *Buffer, a Attributes) error {
	flags := a.Flags &^ AttrExtended

	if err := b.PutUint32(flags); err != nil {
		return err
	}
	if flags&AttrSize != 0 {
		if err := b.PutUint64(a.Size); err != nil {
			return err
		}
	}
	if flags&AttrUIDGID != 0 {
		if err := b.PutUint32(a.UID); err != nil {
			return err
		}
		if err := b.PutUint32(a.GID); err != nil {
			return err
		}
	}
	if flags&AttrPermissions != 0 {
		if err := b.PutUint32(a.Permissions); err != nil {
			return err
		}
	}
	if flags&AttrACModTime != 0 {
		if err := b.PutUint32(a.ATime); err != nil {
			return err
		}
		if err := b.PutUint32(a.MTime); err != nil {
			return err
		}
	}
	return nil
}

// ATimeTime returns a.ATime as a time.Time.
func (a Attributes) ATimeTime() time.Time {
	return time.Unix(int64(a.ATime), 0)
}

// MTimeTime returns a.MTime as a time.Time.
func (a Attributes) MTimeTime() time.Time {
	return time.Unix(int64(a.MTime), 0)
}
