//go:build linux

package scanner

import (
	"io/fs"
	"syscall"
	"time"
)

// createdAt uses the inode change time; Linux stat exposes no birth time.
func createdAt(info fs.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}
