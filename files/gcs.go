package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/jonwraymond/dataconn/config"
)

// gcsReserved are the keys that configure the client itself; everything
// else in a section holding a private_key is treated as service account
// JSON.
var gcsReserved = map[string]bool{
	"endpoint":         true,
	"default_bucket":   true,
	"bucket":           true,
	"project_id":       true,
	"token":            true,
	"credentials_file": true,
	"credentials_json": true,
}

type gcsFS struct {
	client *storage.Client
	bucket string
}

func newGCSFS(ctx context.Context, cfg config.Section) (*gcsFS, error) {
	opts, err := gcsClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("files: create gcs client: %w", err)
	}
	return &gcsFS{client: client, bucket: cfg.StringOr("default_bucket", cfg.String("bucket"))}, nil
}

func gcsClientOptions(cfg config.Section) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	creds, anon, err := gcsCredentials(cfg)
	if err != nil {
		return nil, err
	}
	switch {
	case anon:
		opts = append(opts, option.WithoutAuthentication())
	case creds.file != "":
		opts = append(opts, option.WithCredentialsFile(creds.file))
	case len(creds.json) > 0:
		opts = append(opts, option.WithCredentialsJSON(creds.json))
	}
	if endpoint := cfg.String("endpoint"); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts, nil
}

type gcsCreds struct {
	file string
	json []byte
}

// gcsCredentials picks, in order: an explicit credentials_file or
// credentials_json, a token that is "anon", a path, or a table, and finally
// service account fields written inline in the section. No credentials means
// application default credentials.
func gcsCredentials(cfg config.Section) (creds gcsCreds, anon bool, err error) {
	if f := cfg.String("credentials_file"); f != "" {
		return gcsCreds{file: f}, false, nil
	}
	if j := cfg.String("credentials_json"); j != "" {
		return gcsCreds{json: []byte(j)}, false, nil
	}
	if tok := cfg.Table("token"); tok != nil {
		data, err := json.Marshal(map[string]any(tok))
		if err != nil {
			return gcsCreds{}, false, fmt.Errorf("files: encode gcs token: %w", err)
		}
		return gcsCreds{json: data}, false, nil
	}
	switch tok := cfg.String("token"); tok {
	case "":
	case "anon":
		return gcsCreds{}, true, nil
	default:
		return gcsCreds{file: tok}, false, nil
	}
	if !cfg.Has("private_key") {
		return gcsCreds{}, false, nil
	}
	inline := map[string]any{}
	for _, k := range cfg.Keys() {
		if !gcsReserved[k] {
			inline[k] = cfg[k]
		}
	}
	data, err := json.Marshal(inline)
	if err != nil {
		return gcsCreds{}, false, fmt.Errorf("files: encode gcs credentials: %w", err)
	}
	return gcsCreds{json: data}, false, nil
}

func (f *gcsFS) Protocol() string { return ProtocolGCS }

func (f *gcsFS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := SplitPath(path, f.bucket)
	if err != nil {
		return nil, classify(err)
	}
	r, err := f.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("files: read gs://%s/%s: %w", bucket, key, err))
	}
	return r, nil
}

func (f *gcsFS) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	bucket, key, err := SplitPath(path, f.bucket)
	if err != nil {
		return nil, err
	}
	return f.client.Bucket(bucket).Object(key).NewWriter(ctx), nil
}

// Ping checks the default bucket; without one there is nothing to check.
func (f *gcsFS) Ping(ctx context.Context) error {
	if f.bucket == "" {
		return nil
	}
	if _, err := f.client.Bucket(f.bucket).Attrs(ctx); err != nil {
		return classify(fmt.Errorf("files: bucket %s: %w", f.bucket, err))
	}
	return nil
}

func (f *gcsFS) Close() error { return f.client.Close() }
