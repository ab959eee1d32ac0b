package tools

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// atomicWrite lands content under a temporary name in the target directory
// and renames it into place, so a failed write never leaves a torn file.
func atomicWrite(path string, content []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp-"+uuid.NewString()[:8])
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
