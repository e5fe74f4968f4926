package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"eideploy/internal/deploy"
	"eideploy/internal/logging"
	"eideploy/internal/services"
)

const (
	// LockFileName is created in the output directory while a write is in flight.
	LockFileName     = ".eideploy.lock"
	defaultLockRetry = 100 * time.Millisecond
	fileMode         = 0o644
)

// ErrExists is returned when the target file exists and overwrite is off.
var ErrExists = errors.New("artifact already exists")

// Saved describes an artifact written to disk.
type Saved struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Size     int64  `json:"size_bytes"`
	SHA256   string `json:"sha256"`
}

// Writer saves artifacts into a single output directory.
type Writer struct {
	dir       string
	overwrite bool
	lockRetry time.Duration
	logger    *slog.Logger
}

// Option customizes a Writer.
type Option func(*Writer)

// WithOverwrite allows replacing an existing file of the same name.
func WithOverwrite(overwrite bool) Option {
	return func(w *Writer) { w.overwrite = overwrite }
}

// WithLockRetry sets how often a contended lock is retried.
func WithLockRetry(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.lockRetry = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:       filepath.Clean(dir),
		lockRetry: defaultLockRetry,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "artifact")
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// CheckWritable creates the output directory if needed and verifies the
// current user can write to it.
func (w *Writer) CheckWritable() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "save", "create output dir", w.dir, err)
	}
	info, err := os.Stat(w.dir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "save", "stat output dir", w.dir, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "save", "output dir", w.dir+" is not a directory", nil)
	}
	if err := unix.Access(w.dir, unix.W_OK|unix.X_OK); err != nil {
		return services.Wrap(services.ErrConfiguration, "save", "output dir", w.dir+" is not writable", err)
	}
	return nil
}

// Save writes a.Content to <dir>/<a.Filename> and returns its size and digest.
func (w *Writer) Save(ctx context.Context, a deploy.Artifact) (Saved, error) {
	const stage = "save"
	name := filepath.Base(a.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) || name != a.Filename {
		return Saved{}, services.Wrap(services.ErrValidation, stage, "filename", fmt.Sprintf("%q is not a plain file name", a.Filename), nil)
	}
	if err := w.CheckWritable(); err != nil {
		return Saved{}, err
	}

	lock := flock.New(filepath.Join(w.dir, LockFileName))
	locked, err := lock.TryLockContext(ctx, w.lockRetry)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Saved{}, ctxErr
		}
		return Saved{}, services.Wrap(services.ErrUnknown, stage, "acquire lock", lock.Path(), err)
	}
	if !locked {
		return Saved{}, services.Wrap(services.ErrUnknown, stage, "acquire lock", lock.Path()+" is held", nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			w.logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	target := filepath.Join(w.dir, name)
	if !w.overwrite {
		if _, err := os.Lstat(target); err == nil {
			return Saved{}, services.Wrap(services.ErrValidation, stage, "write", target, ErrExists)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Saved{}, services.Wrap(services.ErrUnknown, stage, "stat target", target, err)
		}
	}

	digest, err := writeAtomic(target, a.Content)
	if err != nil {
		return Saved{}, services.Wrap(services.ErrUnknown, stage, "write", target, err)
	}

	saved := Saved{
		Path:     target,
		Filename: name,
		Size:     int64(len(a.Content)),
		SHA256:   digest,
	}
	w.logger.Info("artifact saved",
		logging.String("path", saved.Path),
		slog.Int64("size_bytes", saved.Size),
		logging.String("sha256", saved.SHA256),
	)
	return saved, nil
}

// writeAtomic writes content next to target, verifies it, and renames it
// into place. The temp file is removed on any failure.
func writeAtomic(target string, content []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	if written != int64(len(content)) {
		return "", fmt.Errorf("short write: wrote %d of %d bytes", written, len(content))
	}
	if err := tmp.Chmod(fileMode); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	digest := hex.EncodeToString(hasher.Sum(nil))

	onDisk, err := FileDigest(tmpPath)
	if err != nil {
		return "", err
	}
	if onDisk != digest {
		return "", fmt.Errorf("hash mismatch: file corrupted during write")
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return "", err
	}
	committed = true
	syncDir(filepath.Dir(target))
	return digest, nil
}

// FileDigest returns the hex sha256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
