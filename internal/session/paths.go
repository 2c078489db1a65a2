// Package session locates a session's on-disk state and picks which session a
// process runs.
package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides BaseDir when set.
const HomeEnv = "WPPWEB_HOME"

// File names inside a session directory.
const (
	hostSocketFile = "host.sock"
	lockFile       = "LOCK"
	archiveFile    = "archive.db"
	logSubdir      = "logs"
	logFile        = "wppd.log"
)

// BaseDir returns $WPPWEB_HOME, or ~/.wpp-web.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wpp-web")
}

// ConfigPath returns the config file shared by every session.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// Dir returns the directory holding everything of session name.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

func inSession(name string, elem ...string) string {
	return filepath.Join(append([]string{Dir(name)}, elem...)...)
}

// HostSocketPath is where the automation host of a session listens by default.
func HostSocketPath(name string) string { return inSession(name, hostSocketFile) }

// HostTarget is HostSocketPath as a gRPC target.
func HostTarget(name string) string { return "unix://" + HostSocketPath(name) }

// LockPath is the file that keeps a second daemon off the session.
func LockPath(name string) string { return inSession(name, lockFile) }

// ArchiveDBPath is the SQLite archive.
func ArchiveDBPath(name string) string { return inSession(name, archiveFile) }

func LogDir(name string) string  { return inSession(name, logSubdir) }
func LogPath(name string) string { return inSession(name, logSubdir, logFile) }

// EnsureDir creates the session directory and its log directory, owner-only.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return fmt.Errorf("create session directory: %w", err)
		}
	}
	return nil
}
