package platform

import "runtime"

// OS families used to pick the platform bundle key.
const (
	FamilyWindows = "win"
	FamilyMac     = "mac"
	FamilyLinux   = "linux"
)

// Family returns the OS family of the running process.
func Family() string {
	return familyOf(runtime.GOOS)
}

func familyOf(goos string) string {
	switch goos {
	case "windows":
		return FamilyWindows
	case "darwin", "ios":
		return FamilyMac
	default:
		return FamilyLinux
	}
}

// IsWindows returns true if the current OS is Windows.
func IsWindows() bool {
	return runtime.GOOS == "windows"
}
