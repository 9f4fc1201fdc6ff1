//go:build !linux

package display

import (
	"fmt"
	"runtime"
)

// OpenFramebuffer is only available on Linux.
func OpenFramebuffer(path string) (Display, error) {
	return nil, fmt.Errorf("framebuffer %s: not supported on %s", path, runtime.GOOS)
}
