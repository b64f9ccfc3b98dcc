package auth

import (
	"context"
	"net/http"

	"github.com/dvcrn/bank-api-client/internal/executor"
)

// Do sends a JSON request to path and decodes the response into out when out
// is not nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	req, err := executor.NewRequest(method, c.URL(path), body)
	if err != nil {
		return err
	}
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return executor.DecodeJSON(resp, out)
}

// GetRaw fetches path and returns the undecoded body.
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := executor.NewRequest(http.MethodGet, c.URL(path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}
