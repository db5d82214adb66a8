package file

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Retrieves device and inode of the file currently at path
func IdentityOf(path string) (id Identity, err error) {
	var stat unix.Stat_t
	err = unix.Stat(path, &stat)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENOTDIR) {
			err = fmt.Errorf("%w: %s", ErrFileGone, path)
			return
		}
		err = fmt.Errorf("failed to stat '%s': %w", path, err)
		return
	}
	id = Identity{Device: uint64(stat.Dev), Inode: uint64(stat.Ino)}
	return
}

// Retrieves device and inode of an open file
func IdentityOfFile(handle *os.File) (id Identity, err error) {
	var stat unix.Stat_t
	err = unix.Fstat(int(handle.Fd()), &stat)
	if err != nil {
		err = fmt.Errorf("failed to stat open file '%s': %w", handle.Name(), err)
		return
	}
	id = Identity{Device: uint64(stat.Dev), Inode: uint64(stat.Ino)}
	return
}

func (id Identity) String() (text string) {
	text = fmt.Sprintf("%d:%d", id.Device, id.Inode)
	return
}
