//go:build windows

package transfer

import "os"

// dirWritable creates and removes a scratch file; ACLs make mode bits
// meaningless here.
func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".hotfolder-*")
	if err != nil {
		return false
	}

	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
