//go:build darwin

package builtins

import (
	"os"
	"syscall"
	"time"
)

// statTimes extracts access/modify/birth times from the platform stat.
func statTimes(info os.FileInfo) (atime, mtime, ctime time.Time) {
	mtime = info.ModTime()
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return mtime, mtime, mtime
	}
	atime = time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec)
	ctime = time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
	return atime, mtime, ctime
}
