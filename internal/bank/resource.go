package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	"github.com/dvcrn/bank-api-client/internal/auth"
	"github.com/dvcrn/bank-api-client/internal/cascade"
	"github.com/dvcrn/bank-api-client/internal/executor"
)

// envelopeKeys are the wrapper fields paged collections may arrive in.
var envelopeKeys = []string{"content", "items", "data"}

// resource is the CRUD surface shared by accounts and customers.
type resource[T any] struct {
	client   *auth.Client
	path     string
	pageSize int
	idOf     func(T) string
	reads    *cascade.Cascade[T]
}

func newResource[T any](client *auth.Client, name, path string, pageSize int, idOf func(T) string, opts ...cascade.Option) *resource[T] {
	r := &resource[T]{client: client, path: path, pageSize: pageSize, idOf: idOf}
	r.reads = cascade.New(name, cascade.Standard(cascade.Source[T]{
		Fetch:    r.fetch,
		FetchRaw: r.fetchRaw,
		List:     r.list,
		IDOf:     idOf,
	}), opts...)
	return r
}

func (r *resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *resource[T]) get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, apierr.New(apierr.NotFound, "empty id")
	}
	v, err := r.reads.ReadWithFallback(ctx, id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *resource[T]) fetch(ctx context.Context, id string) (T, error) {
	var v T
	err := r.client.Get(ctx, r.itemPath(id), &v)
	return v, err
}

func (r *resource[T]) fetchRaw(ctx context.Context, id string) ([]byte, error) {
	return r.client.GetRaw(ctx, r.itemPath(id))
}

func (r *resource[T]) list(ctx context.Context) ([]T, error) {
	raw, err := r.client.GetRaw(ctx, fmt.Sprintf("%s?page=0&size=%d", r.path, r.pageSize))
	if err != nil {
		return nil, err
	}
	return decodeList[T](raw)
}

func (r *resource[T]) create(ctx context.Context, v *T) (*T, error) {
	var out T
	if err := r.client.Post(ctx, r.path, v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *resource[T]) update(ctx context.Context, id string, v *T) (*T, error) {
	var out T
	if err := r.client.Put(ctx, r.itemPath(id), v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *resource[T]) delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, r.itemPath(id))
}

// decodeList accepts a bare JSON array or an object wrapping the array in one
// of envelopeKeys.
func decodeList[T any](raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, apierr.New(apierr.DecodeError, "empty collection body")
	}

	var items []T
	if trimmed[0] == '[' {
		if err := executor.Decode(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := executor.Decode(trimmed, &envelope); err != nil {
		return nil, err
	}
	for _, key := range envelopeKeys {
		if inner, ok := envelope[key]; ok {
			if err := executor.Decode(inner, &items); err != nil {
				return nil, err
			}
			return items, nil
		}
	}
	return nil, apierr.New(apierr.DecodeError, "collection body has no item array")
}
