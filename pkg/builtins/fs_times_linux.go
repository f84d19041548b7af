//go:build linux

package builtins

import (
	"os"
	"syscall"
	"time"
)

// statTimes extracts access/modify/change times from the platform stat.
// Linux exposes no birth time here, so createdAt reports the inode change
// time.
func statTimes(info os.FileInfo) (atime, mtime, ctime time.Time) {
	mtime = info.ModTime()
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return mtime, mtime, mtime
	}
	atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	ctime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	return atime, mtime, ctime
}
