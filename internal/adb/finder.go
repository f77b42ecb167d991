package adb

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

func adbBinary() string {
	if runtime.GOOS == "windows" {
		return "adb.exe"
	}
	return "adb"
}

// candidatePaths lists where platform-tools usually live, most specific first
func candidatePaths(preferred string) []string {
	bin := adbBinary()
	var paths []string

	if preferred != "" {
		// Accept either the binary itself or its directory
		paths = append(paths, preferred, filepath.Join(preferred, bin), filepath.Join(preferred, "platform-tools", bin))
	}

	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if root := os.Getenv(env); root != "" {
			paths = append(paths, filepath.Join(root, "platform-tools", bin))
		}
	}

	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		paths = append(paths, filepath.Join(local, "Android", "Sdk", "platform-tools", bin))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, "AppData", "Local", "Android", "Sdk", "platform-tools", bin),
			filepath.Join(home, "Android", "Sdk", "platform-tools", bin),
			filepath.Join(home, "Library", "Android", "sdk", "platform-tools", bin),
		)
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/usr/bin/adb", "/usr/local/bin/adb")
	}

	return paths
}

// FindADB attempts to locate the ADB executable
func FindADB(preferredPath string) (string, error) {
	for _, path := range candidatePaths(preferredPath) {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	if path, err := exec.LookPath(adbBinary()); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: adb not found, install platform-tools or set adbPath in settings", ErrBridgeUnavailable)
}
