package archive

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoRemovable is returned when no writable removable drive is mounted.
var ErrNoRemovable = errors.New("no writable removable drive mounted")

// Drive is a mounted block device partition.
type Drive struct {
	Device     string // e.g. /dev/sda1
	MountPoint string
}

// Mount is one line of /proc/mounts.
type Mount struct {
	Device     string
	MountPoint string
	ReadOnly   bool
}

// ParseMounts reads the /proc/mounts format. Only /dev block devices are
// returned; pseudo file systems are skipped.
func ParseMounts(r io.Reader) ([]Mount, error) {
	var out []Mount
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		opts := strings.Split(fields[3], ",")
		out = append(out, Mount{
			Device:     unescapeMount(fields[0]),
			MountPoint: unescapeMount(fields[1]),
			ReadOnly:   len(opts) > 0 && opts[0] == "ro",
		})
	}
	return out, sc.Err()
}

// unescapeMount decodes the octal escapes (\040 for a space) the kernel
// writes in mount paths.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// DiskName maps a partition device to the whole disk that owns it:
// /dev/sda1 -> sda, /dev/mmcblk0p1 -> mmcblk0, /dev/nvme0n1p2 -> nvme0n1.
func DiskName(device string) string {
	name := filepath.Base(device)
	for _, prefix := range pSeparated {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		i := strings.LastIndexByte(name, 'p')
		if i > len(prefix) && isDigits(name[i+1:]) && isDigits(name[i-1:i]) {
			return name[:i]
		}
		return name
	}
	if disk := strings.TrimRight(name, digits); disk != "" {
		return disk
	}
	return name
}

// pSeparated are disk names ending in a digit, whose partitions add "p<N>".
var pSeparated = []string{"mmcblk", "nvme", "loop", "nbd", "md"}

const digits = "0123456789"

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, digits) == ""
}

// Removable filters mounts down to writable partitions on removable disks,
// in mount order. sysBlock is the sysfs block directory (/sys/block);
// writable reports whether the process may create files in a mount point.
func Removable(mounts []Mount, sysBlock string, writable func(string) bool) []Drive {
	var out []Drive
	seen := make(map[string]bool)
	for _, m := range mounts {
		if m.ReadOnly || seen[m.MountPoint] {
			continue
		}
		flag, err := os.ReadFile(filepath.Join(sysBlock, DiskName(m.Device), "removable"))
		if err != nil || strings.TrimSpace(string(flag)) != "1" {
			continue
		}
		if !writable(m.MountPoint) {
			continue
		}
		seen[m.MountPoint] = true
		out = append(out, Drive{Device: m.Device, MountPoint: m.MountPoint})
	}
	return out
}
