package files

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/jonwraymond/dataconn/config"
)

type azureFS struct {
	client    *azblob.Client
	container string
	anonymous bool
}

// newAzureFS authenticates with, in order: connection_string, account_key,
// sas_token, use_managed_identity, and finally anonymous access.
func newAzureFS(cfg config.Section) (*azureFS, error) {
	afs := &azureFS{container: cfg.StringOr("default_container", cfg.String("container"))}

	if cs := cfg.String("connection_string"); cs != "" {
		client, err := azblob.NewClientFromConnectionString(cs, nil)
		if err != nil {
			return nil, fmt.Errorf("files: azure connection string: %w", err)
		}
		afs.client = client
		return afs, nil
	}

	serviceURL, err := azureServiceURL(cfg)
	if err != nil {
		return nil, err
	}
	managed, err := cfg.Bool("use_managed_identity", false)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.String("account_key") != "":
		cred, err := azblob.NewSharedKeyCredential(cfg.String("account_name"), cfg.String("account_key"))
		if err != nil {
			return nil, fmt.Errorf("files: azure shared key: %w", err)
		}
		afs.client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("files: azure client: %w", err)
		}
	case cfg.String("sas_token") != "":
		sasURL := serviceURL + "?" + strings.TrimPrefix(cfg.String("sas_token"), "?")
		afs.client, err = azblob.NewClientWithNoCredential(sasURL, nil)
		if err != nil {
			return nil, fmt.Errorf("files: azure client: %w", err)
		}
	case managed:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("files: azure credential: %w", err)
		}
		afs.client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("files: azure client: %w", err)
		}
	default:
		afs.client, err = azblob.NewClientWithNoCredential(serviceURL, nil)
		if err != nil {
			return nil, fmt.Errorf("files: azure client: %w", err)
		}
		afs.anonymous = true
	}
	return afs, nil
}

// azureServiceURL returns endpoint when set, else the public blob endpoint
// of account_name.
func azureServiceURL(cfg config.Section) (string, error) {
	if ep := cfg.String("endpoint"); ep != "" {
		return strings.TrimSuffix(ep, "/") + "/", nil
	}
	account := cfg.String("account_name")
	if account == "" {
		return "", ErrAzureAccount
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", account), nil
}

func (f *azureFS) Protocol() string { return ProtocolAzure }

func (f *azureFS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	container, blob, err := SplitPath(path, f.container)
	if err != nil {
		return nil, classify(err)
	}
	resp, err := f.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("files: download %s/%s: %w", container, blob, err))
	}
	return resp.Body, nil
}

func (f *azureFS) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	container, blob, err := SplitPath(path, f.container)
	if err != nil {
		return nil, err
	}
	return &bufferedWriter{upload: func(data []byte) error {
		if _, err := f.client.UploadBuffer(ctx, container, blob, data, nil); err != nil {
			return classify(fmt.Errorf("files: upload %s/%s: %w", container, blob, err))
		}
		return nil
	}}, nil
}

// Ping checks the default container, or the service properties when the
// client is authenticated.
func (f *azureFS) Ping(ctx context.Context) error {
	svc := f.client.ServiceClient()
	if f.container != "" {
		if _, err := svc.NewContainerClient(f.container).GetProperties(ctx, nil); err != nil {
			return classify(fmt.Errorf("files: container %s: %w", f.container, err))
		}
		return nil
	}
	if f.anonymous {
		return nil
	}
	if _, err := svc.GetProperties(ctx, nil); err != nil {
		return classify(fmt.Errorf("files: azure service: %w", err))
	}
	return nil
}

func (f *azureFS) Close() error { return nil }
