package organize

import (
	"io"
	"os"
	"path/filepath"
	"syscall"

	"tagsortd/internal/errors"
	"tagsortd/internal/log"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// MoveFile moves a file from src to dest, replacing dest if it exists.
// Collision and directory policy are the caller's concern. When src and
// dest are on different devices the file is copied and the source removed.
func (e *Engine) MoveFile(src, dest string) error {
	cleanSrc := filepath.Clean(src)
	cleanDest := filepath.Clean(dest)

	if cleanSrc == cleanDest {
		e.logger.Debugf("Source and destination are the same, skipping: %s", src)
		return nil
	}

	srcInfo, err := e.fs.Stat(cleanSrc)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileError("source file not found", cleanSrc, errors.FileNotFound, err)
		}
		return errors.NewFileError("source file error", cleanSrc, errors.FileAccessDenied, err)
	}
	if srcInfo.IsDir() {
		return errors.NewFileError("cannot move directory as file", cleanSrc, errors.InvalidPath, nil)
	}

	e.logger.Infof("Moving file... %s to %s", cleanSrc, cleanDest)
	if err := e.fs.Rename(cleanSrc, cleanDest); err != nil {
		if !isCrossDevice(err) {
			return errors.NewFileError("failed to move file", cleanSrc, errors.FileOperationFailed, err)
		}
		e.logger.Debugf("Rename crossed devices, copying %s", cleanSrc)
		if err := copyAndRemove(e.fs, cleanSrc, cleanDest, srcInfo.Mode()); err != nil {
			return errors.NewFileError("failed to move file across devices", cleanSrc, errors.FileOperationFailed, err)
		}
	}

	e.logger.With(log.F("size", humanize.Bytes(uint64(srcInfo.Size())))).
		Infof("Moved %s -> %s", filepath.Base(cleanSrc), cleanDest)
	return nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// copyAndRemove copies src to dest and removes src. A partial dest is
// removed when the copy fails.
func copyAndRemove(fs afero.Fs, src, dest string, mode os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		fs.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		fs.Remove(dest)
		return err
	}

	in.Close()
	return fs.Remove(src)
}
