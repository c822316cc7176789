package llm

import (
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jonwraymond/dataconn/connection"
)

var (
	// ErrMissingAPIKey is returned when no api_key is configured.
	ErrMissingAPIKey = errors.New("llm: api_key is required")

	// ErrEmptyResponse is returned when the API answers without choices.
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrUnknownEmbeddingModel is returned for an embedding model the
	// client does not know.
	ErrUnknownEmbeddingModel = errors.New("llm: unknown embedding model")
)

// classify marks API errors permanent unless the status is 429 or 5xx.
// Network failures without a status stay transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := statusCode(err); ok && !transientStatus(code) {
		return connection.Permanent(err)
	}
	return err
}

func statusCode(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
