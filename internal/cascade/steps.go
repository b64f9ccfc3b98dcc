package cascade

import (
	"context"
	"fmt"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	"github.com/dvcrn/bank-api-client/internal/executor"
)

const (
	StepPrimary      = "primary"
	StepRawRepair    = "raw-repair"
	StepListFallback = "list-fallback"
)

// Source supplies the three ways of reading one resource.
type Source[T any] struct {
	// Fetch is the typed read by id.
	Fetch func(ctx context.Context, id string) (T, error)
	// FetchRaw returns the same resource's undecoded body.
	FetchRaw func(ctx context.Context, id string) ([]byte, error)
	// List returns the collection, bounded by the caller's page size.
	List func(ctx context.Context) ([]T, error)
	// IDOf extracts the identifier list entries are matched on.
	IDOf func(T) string
}

// Standard builds the primary, raw-repair and list-fallback chain for src.
// Steps whose source func is nil are left out.
func Standard[T any](src Source[T]) []Step[T] {
	steps := []Step[T]{{Name: StepPrimary, Run: src.Fetch}}

	if src.FetchRaw != nil {
		steps = append(steps, Step[T]{
			Name: StepRawRepair,
			When: func(prev Failure) bool { return prev.Kind() == apierr.DecodeError },
			Run:  rawRepair[T](src.FetchRaw),
		})
	}

	if src.List != nil && src.IDOf != nil {
		steps = append(steps, Step[T]{
			Name: StepListFallback,
			When: func(prev Failure) bool {
				if prev.Step == StepRawRepair {
					return true
				}
				switch prev.Kind() {
				case apierr.NotFound, apierr.ServerError:
					return true
				}
				return false
			},
			Run: listScan(src.List, src.IDOf),
		})
	}
	return steps
}

func rawRepair[T any](fetch func(ctx context.Context, id string) ([]byte, error)) func(context.Context, string) (T, error) {
	return func(ctx context.Context, id string) (T, error) {
		var v T
		raw, err := fetch(ctx, id)
		if err != nil {
			return v, err
		}
		if err := executor.Decode(RepairBraces(raw), &v); err != nil {
			return v, err
		}
		return v, nil
	}
}

func listScan[T any](list func(ctx context.Context) ([]T, error), idOf func(T) string) func(context.Context, string) (T, error) {
	return func(ctx context.Context, id string) (T, error) {
		var zero T
		items, err := list(ctx)
		if err != nil {
			return zero, err
		}
		for _, item := range items {
			if idOf(item) == id {
				return item, nil
			}
		}
		return zero, apierr.New(apierr.NotFound, fmt.Sprintf("id %s not present in collection", id))
	}
}

// RepairBraces truncates raw right after the first point where the opening and
// closing brace counts are equal and non-zero. It recovers bodies that carry
// duplicated trailing closing braces. Braces inside JSON strings are counted
// too. Input that never balances is returned unchanged.
//
// TODO: drop once the server stops emitting duplicated closing braces.
func RepairBraces(raw []byte) []byte {
	var open, closed int
	for i, b := range raw {
		switch b {
		case '{':
			open++
		case '}':
			closed++
		default:
			continue
		}
		if open > 0 && open == closed {
			return raw[:i+1]
		}
	}
	return raw
}
