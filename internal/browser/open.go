// Package browser hands local files to the operating system's default viewer.
package browser

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Open opens the file at path with the user's default application for its
// type. It returns once the viewer has been started.
func Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	cmd, err := command(runtime.GOOS, path)
	if err != nil {
		return err
	}
	return cmd.Start()
}

func command(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", path), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", path), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", path), nil
	default:
		return nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}
