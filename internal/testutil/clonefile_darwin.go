//go:build darwin

package testutil

import "golang.org/x/sys/unix"

// cloneFile makes a copy-on-write clone of a run fixture on APFS.
func cloneFile(src, dst string) error {
	return unix.Clonefile(src, dst, unix.CLONE_NOFOLLOW)
}
