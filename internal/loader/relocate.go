package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/odyssey-erp/quadro/internal/shared"
)

// Relocate moves a built store to servePath, replacing whatever is there. The final
// step is a rename inside the destination directory, so readers see either the old or
// the new file. It must only run after a successful Build.
func Relocate(storePath, servePath string) error {
	src, err := filepath.Abs(storePath)
	if err != nil {
		return fmt.Errorf("loader: relocate: %w: %w", shared.ErrStorage, err)
	}
	dst, err := filepath.Abs(servePath)
	if err != nil {
		return fmt.Errorf("loader: relocate: %w: %w", shared.ErrStorage, err)
	}
	if src == dst {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("loader: relocate: %w: %w", shared.ErrStorage, err)
	}

	err = os.Rename(src, dst)
	if errors.Is(err, syscall.EXDEV) {
		err = copyThenRename(src, dst)
	}
	if err != nil {
		return fmt.Errorf("loader: relocate %s to %s: %w: %w", src, dst, shared.ErrStorage, err)
	}
	return nil
}

// ServePath joins the serving directory and the store's base name.
func ServePath(serveDir, storePath string) string {
	return filepath.Join(serveDir, filepath.Base(storePath))
}

// copyThenRename handles moves across filesystems.
func copyThenRename(src, dst string) error {
	staging := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+"."+uuid.NewString())
	if err := copyFile(src, staging); err != nil {
		_ = os.Remove(staging)
		return err
	}
	if err := os.Rename(staging, dst); err != nil {
		_ = os.Remove(staging)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
