//go:build !windows

package transfer

import "golang.org/x/sys/unix"

func dirWritable(dir string) bool {
	return unix.Access(dir, unix.W_OK|unix.X_OK) == nil
}
