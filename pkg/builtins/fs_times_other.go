//go:build !linux && !darwin

package builtins

import (
	"os"
	"time"
)

// statTimes falls back to the portable modification time on platforms
// without a stat we know how to read.
func statTimes(info os.FileInfo) (atime, mtime, ctime time.Time) {
	m := info.ModTime()
	return m, m, m
}
