// Package handle implements the server's fixed-capacity table of opaque
// handles, one per open file or directory.
package handle

import (
	"fmt"
	"os"
	"strconv"
)

// MaxHandles is N, the number of slots in the table.
const MaxHandles = 99

// HandleDigits is the fixed width of an external handle string; it must be
// wide enough to print MaxHandles.
const HandleDigits = 2

type kind int

const (
	free kind = iota
	fileKind
	dirKind
)

// Entry holds a directory's buffered listing and the cursor a client walks
// across successive READDIR calls. The listing is read once, in full, at
// OPENDIR time, so "rewinding" the cursor is simply setting it back — an
// entry that did not fit in a READDIR reply stays unconsumed for the next
// call, while an entry that cannot be stat'ed or can never fit is skipped.
type Entry struct {
	Dir     *os.File
	Entries []os.DirEntry
	Cursor  int
}

type slot struct {
	kind kind
	file *os.File
	dir  *Entry
}

// Table is the fixed 99-slot handle table described by the protocol: slot
// index i corresponds to external handle value i+1, handle value 0 is
// reserved as invalid, and every non-free slot owns the resources it holds
// until Release runs.
type Table struct {
	slots [MaxHandles]slot
}

// AllocateFile installs f in the first free slot and returns its external
// handle value. It returns 0 if the table is full; the caller owns f in
// that case and must close it.
func (t *Table) AllocateFile(f *os.File) int {
	for i := range t.slots {
		if t.slots[i].kind == free {
			t.slots[i] = slot{kind: fileKind, file: f}
			return i + 1
		}
	}
	return 0
}

// AllocateDir installs dir in the first free slot and returns its external
// handle value, or 0 if the table is full.
func (t *Table) AllocateDir(dir *Entry) int {
	for i := range t.slots {
		if t.slots[i].kind == free {
			t.slots[i] = slot{kind: dirKind, dir: dir}
			return i + 1
		}
	}
	return 0
}

// ResolveFile returns the file installed at handle v, or (nil, false) if v
// does not name an occupied file slot.
func (t *Table) ResolveFile(v int) (*os.File, bool) {
	if v < 1 || v > MaxHandles || t.slots[v-1].kind != fileKind {
		return nil, false
	}
	return t.slots[v-1].file, true
}

// ResolveDir returns the directory entry installed at handle v, or
// (nil, false) if v does not name an occupied directory slot.
func (t *Table) ResolveDir(v int) (*Entry, bool) {
	if v < 1 || v > MaxHandles || t.slots[v-1].kind != dirKind {
		return nil, false
	}
	return t.slots[v-1].dir, true
}

// Resolve parses s as a wire handle string and confirms it names an
// occupied slot of either kind, per the resolve_handle contract: exactly
// HandleDigits decimal digits, value in [1, MaxHandles], slot not Free.
func (t *Table) Resolve(s string) (int, bool) {
	v, ok := ParseHandle(s)
	if !ok || t.slots[v-1].kind == free {
		return 0, false
	}
	return v, true
}

// Release closes the resource at handle v and returns the slot to Free,
// even if the close fails; the close error is returned for the caller to
// report.
func (t *Table) Release(v int) error {
	if v < 1 || v > MaxHandles {
		return nil
	}
	s := &t.slots[v-1]
	var err error
	switch s.kind {
	case fileKind:
		err = s.file.Close()
	case dirKind:
		err = s.dir.Dir.Close()
	}
	*s = slot{}
	return err
}

// ReleaseAll releases every occupied slot, for use at process shutdown.
func (t *Table) ReleaseAll() {
	for v := 1; v <= MaxHandles; v++ {
		_ = t.Release(v)
	}
}

// FormatHandle renders the external handle value v as the fixed-width
// decimal string carried on the wire.
func FormatHandle(v int) string {
	return fmt.Sprintf("%0*d", HandleDigits, v)
}

// ParseHandle parses a wire handle string back to its external value. It
// rejects anything that is not exactly HandleDigits ASCII decimal digits,
// or that parses outside [1, MaxHandles].
func ParseHandle(s string) (int, bool) {
	if len(s) != HandleDigits {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > MaxHandles {
		return 0, false
	}
	return v, true
}
