//go:build linux

package archive

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FindRemovable returns the first mounted, writable removable drive.
func FindRemovable() (Drive, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return Drive{}, fmt.Errorf("list mounts: %w", err)
	}
	defer f.Close()

	mounts, err := ParseMounts(f)
	if err != nil {
		return Drive{}, fmt.Errorf("list mounts: %w", err)
	}
	drives := Removable(mounts, "/sys/block", canWrite)
	if len(drives) == 0 {
		return Drive{}, ErrNoRemovable
	}
	return drives[0], nil
}

func canWrite(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}
