//go:build !linux

package archive

import (
	"fmt"
	"runtime"
)

// FindRemovable is only available on Linux.
func FindRemovable() (Drive, error) {
	return Drive{}, fmt.Errorf("%w: drive discovery not supported on %s", ErrNoRemovable, runtime.GOOS)
}
