package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/deskagent/logging"
)

// WriterOptions configure a Writer.
type WriterOptions struct {
	// Backup keeps a "*.bak" copy of the original before it is overwritten
	// or deleted.
	Backup bool
	// CreateParents creates missing parent directories on write.
	CreateParents bool
	Logger        logging.Logger
}

// Writer writes, appends to and deletes files, with automatic backups.
type Writer struct {
	backup        bool
	createParents bool
	logger        logging.Logger
}

// NewWriter creates a Writer. Backups and parent creation are on by default.
func NewWriter(optFns ...func(o *WriterOptions)) *Writer {
	opts := WriterOptions{
		Backup:        true,
		CreateParents: true,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Writer{
		backup:        opts.Backup,
		createParents: opts.CreateParents,
		logger:        opts.Logger,
	}
}

// Write writes content to path, backing up any existing file first.
func (w *Writer) Write(path, content string) error {
	if w.createParents {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
	}

	if w.backup {
		if _, err := os.Stat(path); err == nil {
			backupPath := path + ".bak"
			if err := copyFile(path, backupPath); err != nil {
				return fmt.Errorf("create backup: %w", err)
			}

			w.logger.Debug("file.write.backup", "path", backupPath)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}

	w.logger.Info("file.write", "path", path, "bytes", len(content))

	return nil
}

// Append appends content to path, creating the file if needed.
func (w *Writer) Append(path, content string) error {
	if w.createParents {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return err
	}

	w.logger.Info("file.append", "path", path, "bytes", len(content))

	return nil
}

// Delete removes path, backing it up first when backups are enabled. It
// reports whether a file was actually deleted.
func (w *Writer) Delete(path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	if w.backup {
		if err := copyFile(path, path+".bak"); err != nil {
			return false, fmt.Errorf("create backup: %w", err)
		}
	}

	if err := os.Remove(path); err != nil {
		return false, err
	}

	w.logger.Info("file.delete", "path", path)

	return true, nil
}

// copyFile copies src to dst, preserving the file mode.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
