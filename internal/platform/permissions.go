package platform

import "os"

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if IsWindows() {
		return nil
	}
	return os.Chmod(path, mode)
}

// CopyMode gives dst the permission bits of src. A missing src leaves dst
// untouched.
func CopyMode(src, dst string) error {
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return Chmod(dst, info.Mode().Perm())
}
