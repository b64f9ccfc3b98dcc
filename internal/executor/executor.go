// Package executor performs single outbound HTTP calls and classifies their
// outcome. It never retries; retry policy belongs to its callers.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	serverhttp "github.com/dvcrn/bank-api-client/internal/http"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

// HeaderRequestID correlates a request across client and server logs.
const HeaderRequestID = "X-Request-ID"

// maxBodySize caps how much of a response body is buffered.
const maxBodySize = 10 << 20

// Request describes one outbound call. Body is sent verbatim; it is kept as
// bytes so the request can be replayed.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// NewRequest builds a request, JSON-encoding body when it is not nil.
func NewRequest(method, url string, body any) (*Request, error) {
	req := &Request{Method: method, URL: url, Header: make(http.Header)}
	if body == nil {
		return req, nil
	}
	switch b := body.(type) {
	case []byte:
		req.Body = b
	case json.RawMessage:
		req.Body = b
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		req.Body = data
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Clone returns a deep copy so decorators never mutate a captured request.
func (r *Request) Clone() *Request {
	cp := &Request{Method: r.Method, URL: r.URL, Header: r.Header.Clone()}
	if cp.Header == nil {
		cp.Header = make(http.Header)
	}
	if r.Body != nil {
		cp.Body = append([]byte(nil), r.Body...)
	}
	return cp
}

// Response is a fully buffered 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Sender is what decorators and cascades call through.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Executor sends requests over an HTTPClient.
type Executor struct {
	httpClient serverhttp.HTTPClient
	userAgent  string
	log        zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(e *Executor) { e.userAgent = ua }
}

// New creates an Executor over httpClient.
func New(httpClient serverhttp.HTTPClient, opts ...Option) *Executor {
	e := &Executor{
		httpClient: httpClient,
		userAgent:  "bank-api-client/1.0",
		log:        logger.For("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Send performs req once. Non-2xx statuses and transport failures come back as
// *apierr.Error; the response body is attached to the error when present.
func (e *Executor) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := apierr.FromContext(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, apierr.Wrap(apierr.Unknown, "could not create request", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}
	requestID := httpReq.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
		httpReq.Header.Set(HeaderRequestID, requestID)
	}

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := apierr.FromContext(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		e.log.Debug().Err(err).Str("request_id", requestID).Str("method", req.Method).Str("url", req.URL).Msg("Transport failure")
		return nil, apierr.Wrap(apierr.NetworkUnreachable, "request execution error", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	duration := time.Since(start)
	if err != nil {
		if ctxErr := apierr.FromContext(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apierr.Wrap(apierr.NetworkUnreachable, "could not read response body", err)
	}

	e.log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Int("response_size", len(respBody)).
		Dur("duration", duration).
		Msg("HTTP request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierr.FromStatus(resp.StatusCode, respBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		Duration:   duration,
	}, nil
}

// DecodeJSON unmarshals the response body into v. Empty bodies and malformed
// payloads are reported as DecodeError.
func DecodeJSON(resp *Response, v any) error {
	if resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return apierr.New(apierr.DecodeError, "empty response body")
	}
	return Decode(resp.Body, v)
}

// Decode unmarshals raw JSON into v, classifying failures as DecodeError.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		msg := "could not unmarshal response body"
		switch {
		case errors.As(err, &syntaxErr):
			msg = fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			msg = fmt.Sprintf("unexpected %s for field %q", typeErr.Value, typeErr.Field)
		}
		return apierr.Wrap(apierr.DecodeError, msg, err)
	}
	return nil
}

// JoinURL appends path to base without doubling slashes.
func JoinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
