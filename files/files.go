package files

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/jonwraymond/dataconn/cache"
	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/table"
)

// Kind is the tag of the generic files connection type.
const Kind = "files"

// Types register the files backends with a connection.Manager. The cloud
// shortcuts preset the protocol; a protocol key in their section still wins.
var (
	Type      = connection.Type{Kind: Kind, DefaultName: "files", New: New}
	S3Type    = shortcut(ProtocolS3)
	GCSType   = shortcut(ProtocolGCS)
	AzureType = shortcut(ProtocolAzure)
)

func shortcut(protocol string) connection.Type {
	return connection.Type{
		Kind:        protocol,
		DefaultName: protocol,
		Defaults:    map[string]any{"protocol": protocol},
		New:         New,
	}
}

// Input formats understood by Read.
const (
	FormatText    = "text"
	FormatBytes   = "bytes"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// Conn is a files connection.
type Conn struct {
	*connection.Base[FileSystem]
}

// New builds a Conn from env.
func New(ctx context.Context, env connection.Env) (connection.Connection, error) {
	protocol := NormalizeProtocol(env.Config.String("protocol"))
	switch protocol {
	case ProtocolFile, ProtocolS3, ProtocolGCS, ProtocolAzure:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
	base, err := connection.NewBase(ctx, env, fsDriver{})
	if err != nil {
		return nil, err
	}
	return &Conn{Base: base}, nil
}

// Protocol returns the configured protocol.
func (c *Conn) Protocol() string {
	return NormalizeProtocol(c.Env().Config.String("protocol"))
}

// FS returns the installed FileSystem.
func (c *Conn) FS() (FileSystem, error) { return c.Handle() }

// Open opens path for reading, bypassing the cache.
func (c *Conn) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	fs, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return fs.Open(ctx, path)
}

// Create opens path for writing. Data is stored when the writer is closed.
func (c *Conn) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	fs, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return fs.Create(ctx, path)
}

// WriteFile stores data at path.
func (c *Conn) WriteFile(ctx context.Context, path string, data []byte) error {
	w, err := c.Create(ctx, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// ReadOption configures the Read methods.
type ReadOption func(*readOptions)

type readOptions struct {
	delimiter rune
	noHeader  bool
	read      []connection.ReadOption
}

// WithTTL caches the result for d; 0 disables caching.
func WithTTL(d time.Duration) ReadOption {
	return WithReadOptions(connection.WithTTL(d))
}

// WithReadOptions passes options through to connection.Read.
func WithReadOptions(opts ...connection.ReadOption) ReadOption {
	return func(o *readOptions) { o.read = append(o.read, opts...) }
}

// WithDelimiter sets the CSV field delimiter. The default is ','.
func WithDelimiter(r rune) ReadOption {
	return func(o *readOptions) { o.delimiter = r }
}

// WithoutHeader reads every CSV record as data; columns are named by
// position starting at "0".
func WithoutHeader() ReadOption {
	return func(o *readOptions) { o.noHeader = true }
}

func newReadOptions(opts []ReadOption) readOptions {
	o := readOptions{
		delimiter: ',',
		read:      []connection.ReadOption{connection.WithTTL(cache.NoExpiry)},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type pathArgs struct {
	Path string `json:"path"`
}

type csvArgs struct {
	Path      string `json:"path"`
	Delimiter string `json:"delimiter"`
	NoHeader  bool   `json:"no_header,omitempty"`
}

// ReadBytes returns the contents of path.
func (c *Conn) ReadBytes(ctx context.Context, path string, opts ...ReadOption) ([]byte, error) {
	o := newReadOptions(opts)
	return connection.Read(ctx, c.Base, "read_bytes", pathArgs{Path: path}, readBytes, o.read...)
}

// ReadText returns the contents of path as a string.
func (c *Conn) ReadText(ctx context.Context, path string, opts ...ReadOption) (string, error) {
	o := newReadOptions(opts)
	return connection.Read(ctx, c.Base, "read_text", pathArgs{Path: path}, readText, o.read...)
}

// ReadCSV parses path as CSV. The first record names the columns unless
// WithoutHeader is given. Values are strings.
func (c *Conn) ReadCSV(ctx context.Context, path string, opts ...ReadOption) (*table.Table, error) {
	o := newReadOptions(opts)
	args := csvArgs{Path: path, Delimiter: string(o.delimiter), NoHeader: o.noHeader}
	return connection.Read(ctx, c.Base, "read_csv", args, readCSV, o.read...)
}

// ReadJSON decodes path as a single JSON document.
func (c *Conn) ReadJSON(ctx context.Context, path string, opts ...ReadOption) (any, error) {
	o := newReadOptions(opts)
	return connection.Read(ctx, c.Base, "read_json", pathArgs{Path: path}, readJSON, o.read...)
}

// Read reads path in the given input format. An empty format is inferred
// from the file extension, falling back to text.
func (c *Conn) Read(ctx context.Context, path, format string, opts ...ReadOption) (any, error) {
	if format == "" {
		format = FormatFromPath(path)
	}
	switch strings.ToLower(format) {
	case FormatText:
		return c.ReadText(ctx, path, opts...)
	case FormatBytes:
		return c.ReadBytes(ctx, path, opts...)
	case FormatCSV:
		return c.ReadCSV(ctx, path, opts...)
	case FormatJSON:
		return c.ReadJSON(ctx, path, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// FormatFromPath guesses the input format from the extension of p.
func FormatFromPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".csv", ".tsv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".parquet", ".pq":
		return FormatParquet
	default:
		return FormatText
	}
}

func readAll(ctx context.Context, fs FileSystem, path string) ([]byte, error) {
	r, err := fs.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("files: read %s: %w", path, err)
	}
	return data, nil
}

func readBytes(ctx context.Context, fs FileSystem, a pathArgs) ([]byte, error) {
	return readAll(ctx, fs, a.Path)
}

func readText(ctx context.Context, fs FileSystem, a pathArgs) (string, error) {
	data, err := readAll(ctx, fs, a.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readJSON(ctx context.Context, fs FileSystem, a pathArgs) (any, error) {
	data, err := readAll(ctx, fs, a.Path)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, connection.Permanent(fmt.Errorf("files: decode %s: %w", a.Path, err))
	}
	return v, nil
}

func readCSV(ctx context.Context, fs FileSystem, a csvArgs) (*table.Table, error) {
	r, err := fs.Open(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return parseCSV(r, a)
}

func parseCSV(r io.Reader, a csvArgs) (*table.Table, error) {
	cr := csv.NewReader(r)
	if d := []rune(a.Delimiter); len(d) == 1 {
		cr.Comma = d[0]
	}
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			err = connection.Permanent(err)
		}
		return nil, fmt.Errorf("files: parse %s: %w", a.Path, err)
	}

	var t *table.Table
	if a.NoHeader {
		width := 0
		for _, rec := range records {
			width = max(width, len(rec))
		}
		cols := make([]string, width)
		for i := range cols {
			cols[i] = fmt.Sprint(i)
		}
		t = table.New(cols...)
	} else {
		if len(records) == 0 {
			return table.New(), nil
		}
		t = table.New(records[0]...)
		records = records[1:]
	}

	for _, rec := range records {
		row := make([]any, len(t.Columns))
		for i := range row {
			if i < len(rec) {
				row[i] = rec[i]
			}
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// fsDriver builds FileSystem handles.
type fsDriver struct{}

func (fsDriver) Connect(ctx context.Context, cfg config.Section) (FileSystem, error) {
	fs, err := NewFileSystem(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := fs.Ping(ctx); err != nil {
		_ = fs.Close()
		return nil, err
	}
	return fs, nil
}

func (fsDriver) Ping(ctx context.Context, fs FileSystem) error { return fs.Ping(ctx) }

func (fsDriver) Close(fs FileSystem) error {
	if fs == nil {
		return nil
	}
	return fs.Close()
}
