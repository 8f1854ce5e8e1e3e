package render

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ErrWriteConflict is returned when both the target path and its
// timestamped alternate are locked by another process.
var ErrWriteConflict = errors.New("output file is locked")

const alternateLayout = "20060102_150405"

// FileWriter persists rendered files, falling back to a timestamped name
// when the target is locked.
type FileWriter struct {
	create func(name string) (io.WriteCloser, error)
	now    func() time.Time
}

// NewFileWriter returns a FileWriter backed by the local filesystem.
func NewFileWriter() *FileWriter {
	return &FileWriter{
		create: func(name string) (io.WriteCloser, error) { return os.Create(name) },
		now:    time.Now,
	}
}

// AlternatePath returns path with a timestamp inserted before the
// extension: report.xlsx becomes report_20240131_153000.xlsx.
func AlternatePath(path string, t time.Time) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + t.Format(alternateLayout) + ext
}

// Write stores data at path and returns the path actually written.
func (w *FileWriter) Write(path string, data []byte) (string, error) {
	err := w.write(path, data)
	if err == nil {
		return path, nil
	}
	if !isConflict(err) {
		return "", fmt.Errorf("FileWriter.Write: %w", err)
	}

	alt := AlternatePath(path, w.now())
	err = w.write(alt, data)
	switch {
	case err == nil:
		return alt, nil
	case isConflict(err):
		return "", fmt.Errorf("FileWriter.Write: %s: %w", alt, ErrWriteConflict)
	default:
		return "", fmt.Errorf("FileWriter.Write: %w", err)
	}
}

func (w *FileWriter) write(path string, data []byte) error {
	f, err := w.create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// isConflict reports whether err means another process holds the file.
func isConflict(err error) bool {
	return errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETXTBSY)
}
