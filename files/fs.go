package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonwraymond/dataconn/config"
)

// FileSystem is a storage backend addressed by slash-separated paths.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: missing files are reported as errors matching ErrNotFound.
//   - Ownership: callers close the readers and writers they receive; a
//     writer's data is only durable once Close returns nil.
type FileSystem interface {
	// Protocol returns the protocol name, e.g. "file" or "s3".
	Protocol() string

	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Protocols supported by NewFileSystem.
const (
	ProtocolFile  = "file"
	ProtocolS3    = "s3"
	ProtocolGCS   = "gcs"
	ProtocolAzure = "azure"
)

var protocolAliases = map[string]string{
	"":      ProtocolFile,
	"local": ProtocolFile,
	"s3a":   ProtocolS3,
	"gs":    ProtocolGCS,
	"az":    ProtocolAzure,
	"abfs":  ProtocolAzure,
}

// NormalizeProtocol maps aliases such as "gs" or "abfs" to their canonical
// protocol name.
func NormalizeProtocol(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if canon, ok := protocolAliases[p]; ok {
		return canon
	}
	return p
}

// NewFileSystem builds the backend named by cfg's protocol key. The
// remaining keys configure the backend.
func NewFileSystem(ctx context.Context, cfg config.Section) (FileSystem, error) {
	protocol := NormalizeProtocol(cfg.String("protocol"))
	rest := cfg.Without("protocol")
	switch protocol {
	case ProtocolFile:
		return newLocalFS(rest), nil
	case ProtocolS3:
		return newS3FS(ctx, rest)
	case ProtocolGCS:
		return newGCSFS(ctx, rest)
	case ProtocolAzure:
		return newAzureFS(rest)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
}

// SplitPath splits a cloud path into bucket and key. A scheme prefix such as
// "s3://" is ignored. When the path names no bucket, def is used.
func SplitPath(path, def string) (bucket, key string, err error) {
	if _, rest, ok := strings.Cut(path, "://"); ok {
		path = rest
	} else if def != "" {
		return def, strings.TrimPrefix(path, "/"), nil
	}
	path = strings.TrimPrefix(path, "/")
	bucket, key, _ = strings.Cut(path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return bucket, key, nil
}

// localFS reads from the local disk. Relative paths resolve against root.
type localFS struct {
	root string
}

func newLocalFS(cfg config.Section) *localFS {
	return &localFS{root: cfg.String("root")}
}

func (l *localFS) Protocol() string { return ProtocolFile }

func (l *localFS) resolve(path string) string {
	path = strings.TrimPrefix(path, "file://")
	if l.root == "" || filepath.IsAbs(path) {
		return filepath.FromSlash(path)
	}
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *localFS) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(l.resolve(path))
	if err != nil {
		return nil, classify(err)
	}
	return f, nil
}

func (l *localFS) Create(_ context.Context, path string) (io.WriteCloser, error) {
	full := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	return os.Create(full)
}

func (l *localFS) Ping(context.Context) error {
	if l.root == "" {
		return nil
	}
	info, err := os.Stat(l.root)
	if err != nil {
		return classify(err)
	}
	if !info.IsDir() {
		return fmt.Errorf("files: root %s is not a directory", l.root)
	}
	return nil
}

func (l *localFS) Close() error { return nil }

// bufferedWriter collects writes and uploads them on Close.
type bufferedWriter struct {
	buf    []byte
	upload func(data []byte) error
	closed bool
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *bufferedWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.upload(w.buf)
}
