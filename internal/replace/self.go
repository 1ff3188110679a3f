package replace

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/platform"
)

// renameFile is os.Rename, replaceable in tests.
var renameFile = os.Rename

// PromoteSelf moves a staged copy of the updater over the running binary.
// The current binary is renamed to a backup first (allowed for a running
// executable on every supported OS), the staged file takes its place with
// the original permissions, and on failure the backup is restored.
func PromoteSelf(staged, current string) error {
	info, err := os.Stat(current)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stat current binary: %w", err)
	}
	perm := os.FileMode(0755)
	if err == nil {
		perm = info.Mode().Perm()
	}

	backupPath := current + ".backup"
	hasBackup := false
	if err == nil {
		os.Remove(backupPath)
		if err := renameFile(current, backupPath); err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
		hasBackup = true
	}

	if err := renameFile(staged, current); err != nil {
		// Cross-filesystem fallback.
		if copyErr := copyFile(staged, current); copyErr != nil {
			installErr := fmt.Errorf("installing new binary: %w", copyErr)
			if hasBackup {
				if rbErr := rollback(backupPath, current); rbErr != nil {
					return errors.Join(installErr, rbErr)
				}
			}
			return installErr
		}
		os.Remove(staged)
	}

	if err := platform.Chmod(current, perm); err != nil {
		logging.Default().Warn("restoring permissions of updated binary",
			logging.Path(current), logging.Err(err))
	}

	// Best effort: a running Windows binary cannot be deleted until it exits.
	os.Remove(backupPath)
	return nil
}

// PromotePending finishes a self update staged by an earlier run. It
// reports whether a staged binary was found.
func PromotePending(current string) (bool, error) {
	staged := StagedPath(current)
	if _, err := os.Stat(staged); os.IsNotExist(err) {
		os.Remove(current + ".backup")
		return false, nil
	}
	return true, PromoteSelf(staged, current)
}

func rollback(backupPath, currentPath string) error {
	if err := renameFile(backupPath, currentPath); err != nil {
		if copyErr := copyFile(backupPath, currentPath); copyErr != nil {
			return fmt.Errorf("rolling back to %s failed: %w (rename error: %v)", backupPath, copyErr, err)
		}
		if err := platform.CopyMode(backupPath, currentPath); err != nil {
			return fmt.Errorf("restoring permissions of %s: %w", currentPath, err)
		}
		os.Remove(backupPath)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
