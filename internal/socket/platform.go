package socket

import "runtime"

// PlatformName returns the short identifier of the build target:
// win64, win32, osx, ios, android or linux. Other targets report GOOS.
func PlatformName() string {
	return platformName(runtime.GOOS, runtime.GOARCH)
}

func platformName(goos, goarch string) string {
	switch goos {
	case "windows":
		switch goarch {
		case "386", "arm":
			return "win32"
		default:
			return "win64"
		}
	case "darwin":
		return "osx"
	default:
		return goos
	}
}
