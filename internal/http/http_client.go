package http

import "net/http"

// HTTPClient is the transport the executor sends through.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
