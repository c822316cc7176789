package files

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"google.golang.org/api/googleapi"

	"github.com/jonwraymond/dataconn/connection"
)

var (
	// ErrNotFound is returned when a file or object does not exist.
	ErrNotFound = errors.New("files: not found")

	// ErrUnsupportedProtocol is returned for an unknown protocol.
	ErrUnsupportedProtocol = errors.New("files: unsupported protocol")

	// ErrUnsupportedFormat is returned by Read for an unknown input format.
	ErrUnsupportedFormat = errors.New("files: unsupported input format")

	// ErrInvalidPath is returned for a path without a bucket.
	ErrInvalidPath = errors.New("files: invalid path")

	// ErrAzureAccount is returned when neither a connection string nor an
	// account name is configured.
	ErrAzureAccount = errors.New("files: azure needs connection_string or account_name")
)

// classify wraps missing objects in ErrNotFound and marks them, and every
// other client error, as permanent. Throttling and server errors stay
// transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidPath) {
		return connection.Permanent(err)
	}
	if isNotFound(err) {
		return connection.Permanent(fmt.Errorf("%w: %w", ErrNotFound, err))
	}
	if code, ok := statusCode(err); ok && code >= 400 && code < 500 &&
		code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
		return connection.Permanent(err)
	}
	return err
}

func isNotFound(err error) bool {
	var noKey *s3types.NoSuchKey
	var noBucket *s3types.NoSuchBucket
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, storage.ErrObjectNotExist),
		errors.Is(err, storage.ErrBucketNotExist),
		errors.As(err, &noKey),
		errors.As(err, &noBucket),
		bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
		return true
	}
	if code, ok := statusCode(err); ok && code == http.StatusNotFound {
		return true
	}
	return false
}

// statusCode extracts the HTTP status from an S3, GCS or Azure error.
func statusCode(err error) (int, bool) {
	var withStatus interface{ HTTPStatusCode() int }
	if errors.As(err, &withStatus) {
		return withStatus.HTTPStatusCode(), true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}
	var azErr *azcore.ResponseError
	if errors.As(err, &azErr) {
		return azErr.StatusCode, true
	}
	return 0, false
}
