package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvHome overrides the base directory used for relative runtime paths.
const EnvHome = "SLIDEHUB_HOME"

// HomeDir is where relative runtime paths such as log_dir are anchored:
// $SLIDEHUB_HOME when set, otherwise the working directory. Containers start
// in the service directory, while `go run` binaries live in a temp dir, so
// the executable location is not used.
func HomeDir() string {
	if home := strings.TrimSpace(os.Getenv(EnvHome)); home != "" {
		return filepath.Clean(expandUser(home))
	}
	if wd, err := os.Getwd(); err == nil && wd != "" {
		return wd
	}
	return "."
}

// ResolveRuntimePath returns an absolute path for raw, falling back to
// defaultSubdir under HomeDir when raw is blank.
func ResolveRuntimePath(raw, defaultSubdir string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = strings.TrimSpace(defaultSubdir)
	}
	target = expandUser(target)
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(HomeDir(), target)
}

// expandUser replaces a leading "~/" with the user's home directory.
func expandUser(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
