package security

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/quiverlab/toolgate/internal/fault"
)

// Extensions that load or run code. Reading one back to a model is bad
// enough; writing one is an arbitrary-execution primitive.
var deniedExtensions = map[string]struct{}{
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {},
	".sh": {}, ".bash": {}, ".zsh": {}, ".ps1": {},
	".bat": {}, ".cmd": {}, ".com": {}, ".scr": {},
	".msi": {}, ".pkg": {}, ".deb": {}, ".rpm": {},
	".app": {}, ".jar": {}, ".lnk": {}, ".desktop": {},
}

// PathGuard validates file paths against a directory allow-list and an
// executable-extension deny-list. The allow-list is fixed at construction.
type PathGuard struct {
	allowedDirs []string
}

// NewPathGuard builds a guard allowing the working directory, conventional
// user directories under the home directory, and any extra directories from
// configuration. Entries that cannot be resolved are skipped.
func NewPathGuard(extraDirs ...string) *PathGuard {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, sub := range []string{"Documents", "Desktop", "Downloads"} {
			dirs = append(dirs, filepath.Join(home, sub))
		}
	}
	dirs = append(dirs, extraDirs...)

	resolved := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := canonicalize(d)
		if err != nil {
			continue
		}
		resolved = append(resolved, abs)
	}
	return &PathGuard{allowedDirs: resolved}
}

// AssertAllowed resolves raw to a canonical absolute path and validates it.
// The returned path is what downstream I/O must use; re-resolving the raw
// string would reopen a check/use race. Extra directories widen the
// allow-list for this call only.
func (g *PathGuard) AssertAllowed(raw string, extra ...string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fault.Securityf("path cannot be empty")
	}

	resolved, err := canonicalize(raw)
	if err != nil {
		return "", fault.Securityf("cannot resolve path %q", raw)
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	if _, denied := deniedExtensions[ext]; denied {
		return "", fault.Securityf("file extension %q is not allowed", ext)
	}

	allowed := g.allowedDirs
	if len(extra) > 0 {
		// never append into the shared backing array
		allowed = append([]string(nil), g.allowedDirs...)
		for _, d := range extra {
			abs, err := canonicalize(d)
			if err != nil {
				continue
			}
			allowed = append(allowed, abs)
		}
	}

	for _, dir := range allowed {
		if underDir(resolved, dir) {
			return resolved, nil
		}
	}
	return "", fault.Securityf("path %q is outside the allowed directories", resolved)
}

// CheckReadable reports whether the already-validated path exists and is a
// readable regular file. It never widens the allow-list.
func (g *PathGuard) CheckReadable(resolved string) error {
	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fault.Securityf("file does not exist: %s", resolved)
		}
		return fault.Securityf("cannot access file: %s", resolved)
	}
	if info.IsDir() {
		return fault.Securityf("path is a directory, not a file: %s", resolved)
	}
	f, err := os.Open(resolved)
	if err != nil {
		return fault.Securityf("file is not readable: %s", resolved)
	}
	f.Close()
	return nil
}

// CheckWritable reports whether the already-validated path can be created
// or overwritten: its parent directory must exist and be writable.
func (g *PathGuard) CheckWritable(resolved string) error {
	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		return fault.Securityf("path is a directory, not a file: %s", resolved)
	}
	parent := filepath.Dir(resolved)
	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return fault.Securityf("parent directory does not exist: %s", parent)
	}
	return nil
}

// canonicalize produces an absolute, cleaned path with symlinks resolved.
// For paths that do not exist yet, symlinks are resolved on the deepest
// existing ancestor and the remainder re-joined.
func canonicalize(raw string) (string, error) {
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}

	dir := abs
	var tail []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{real}, tail...)...), nil
		}
	}
	return abs, nil
}

// underDir reports whether path equals dir or sits beneath it, with a
// separator boundary so /home/userevil is not inside /home/user.
func underDir(path, dir string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
