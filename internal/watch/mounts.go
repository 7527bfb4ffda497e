package watch

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var errNotMounted = errors.New("device not mounted")

// mountPointForDevice scans a mounts table (/proc/mounts format) for the
// given device and returns its mount point. Devices are compared after
// symlink resolution so /dev/disk/by-id style paths still match.
func mountPointForDevice(mountsPath, device string) (string, error) {
	f, err := os.Open(mountsPath)
	if err != nil {
		return "", fmt.Errorf("open mounts: %w", err)
	}
	defer f.Close()

	requested, _ := filepath.EvalSymlinks(device)
	if requested == "" {
		requested = device
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		mountDevice := decodeMountField(fields[0])
		mountPath := decodeMountField(fields[1])

		canonical, _ := filepath.EvalSymlinks(mountDevice)
		if canonical == "" {
			canonical = mountDevice
		}
		if canonical == requested {
			return mountPath, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan mounts: %w", err)
	}
	return "", errNotMounted
}

// decodeMountField reverses the octal escapes the kernel writes into
// /proc/mounts for whitespace and backslashes.
func decodeMountField(field string) string {
	replacer := strings.NewReplacer(
		"\\040", " ",
		"\\011", "\t",
		"\\012", "\n",
		"\\134", "\\",
	)
	return replacer.Replace(field)
}
