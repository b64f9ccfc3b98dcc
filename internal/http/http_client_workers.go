//go:build js && wasm

package http

import (
	"net/http"
	"time"

	"github.com/syumai/workers/cloudflare/fetch"
)

// WorkersHTTPClient sends requests through the Cloudflare Workers fetch API.
type WorkersHTTPClient struct {
	client *fetch.Client
}

// NewHTTPClient returns the fetch-backed client. The Workers runtime owns
// request deadlines, so timeout is only honored through the request context.
func NewHTTPClient(_ time.Duration) HTTPClient {
	return &WorkersHTTPClient{client: fetch.NewClient()}
}

// Do performs req with fetch, carrying over every header value.
func (c *WorkersHTTPClient) Do(req *http.Request) (*http.Response, error) {
	fetchReq, err := fetch.NewRequest(req.Context(), req.Method, req.URL.String(), req.Body)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, value := range values {
			fetchReq.Header.Add(key, value)
		}
	}
	return c.client.Do(fetchReq, nil)
}
