package files

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/hupe1980/deskagent/logging"
)

// DefaultMaxReadBytes is the largest file Read will load, protecting
// against accidentally pulling huge binaries into memory.
const DefaultMaxReadBytes = 10 * 1024 * 1024

// ReaderOptions configure a Reader.
type ReaderOptions struct {
	// MaxBytes is the maximum file size Read will load.
	MaxBytes int64
	Logger   logging.Logger
}

// Reader reads files in an encoding-tolerant way: UTF-8 first, then UTF-16
// via its byte-order mark, then Windows-1252 as a byte-for-byte fallback.
type Reader struct {
	maxBytes int64
	logger   logging.Logger
}

// NewReader creates a Reader.
func NewReader(optFns ...func(o *ReaderOptions)) *Reader {
	opts := ReaderOptions{
		MaxBytes: DefaultMaxReadBytes,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Reader{
		maxBytes: opts.MaxBytes,
		logger:   opts.Logger,
	}
}

// Read returns the text content of the file at path. Oversized and binary
// files return a placeholder message rather than an error.
func (r *Reader) Read(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("file not found: %s", path)
	}
	if err != nil {
		return "", err
	}

	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", path)
	}

	if info.Size() > r.maxBytes {
		return fmt.Sprintf("[File too large to read: %s  (%.1f MB > %.0f MB limit)]",
			filepath.Base(path), float64(info.Size())/1e6, float64(r.maxBytes)/1e6), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	r.logger.Debug("file.read", "path", path, "bytes", len(data))

	return decodeText(data, filepath.Base(path)), nil
}

// ReadLines returns lines start..end of the file, 1-based and inclusive,
// each prefixed with its line number. An end of 0 means "to the last line".
func (r *Reader) ReadLines(path string, start, end int) (string, error) {
	content, err := r.Read(path)
	if err != nil {
		return "", err
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	if start < 1 {
		start = 1
	}

	if end <= 0 || end > len(lines) {
		end = len(lines)
	}

	if start > len(lines) {
		return "", nil
	}

	var sb strings.Builder

	for i := start; i <= end; i++ {
		if i > start {
			sb.WriteByte('\n')
		}

		fmt.Fprintf(&sb, "%d: %s", i, lines[i-1])
	}

	return sb.String(), nil
}

// Checksum returns a hex digest of the file contents. Supported algorithms
// are md5, sha1, sha256 and sha512.
func (r *Reader) Checksum(path, algorithm string) (string, error) {
	var h hash.Hash

	switch strings.ToLower(algorithm) {
	case "md5":
		h = md5.New()
	case "sha1":
		h = sha1.New()
	case "sha256":
		h = sha256.New()
	case "sha512":
		h = sha512.New()
	default:
		return "", fmt.Errorf("unsupported checksum algorithm: %q", algorithm)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// decodeText turns raw file bytes into a string, trying UTF-8, then UTF-16
// with a byte-order mark, then Windows-1252. Data that looks binary gets a
// placeholder instead.
func decodeText(data []byte, name string) string {
	if utf8.Valid(data) {
		return string(data)
	}

	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if out, err := dec.Bytes(data); err == nil {
			return string(out)
		}
	}

	if bytes.IndexByte(data, 0) >= 0 {
		return fmt.Sprintf("[Binary file: %s  (%d bytes)]", name, len(data))
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return fmt.Sprintf("[Binary file: %s  (%d bytes)]", name, len(data))
	}

	return string(out)
}
