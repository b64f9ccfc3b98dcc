package cascade

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	"github.com/dvcrn/bank-api-client/internal/executor"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// fakeSource records which reads ran.
type fakeSource struct {
	fetchErr error
	fetched  entity
	raw      string
	rawErr   error
	list     []entity
	listErr  error
	calls    []string
}

func (f *fakeSource) source() Source[entity] {
	return Source[entity]{
		Fetch: func(ctx context.Context, id string) (entity, error) {
			f.calls = append(f.calls, StepPrimary)
			if f.fetchErr != nil {
				return entity{}, f.fetchErr
			}
			return f.fetched, nil
		},
		FetchRaw: func(ctx context.Context, id string) ([]byte, error) {
			f.calls = append(f.calls, StepRawRepair)
			if f.rawErr != nil {
				return nil, f.rawErr
			}
			return []byte(f.raw), nil
		},
		List: func(ctx context.Context) ([]entity, error) {
			f.calls = append(f.calls, StepListFallback)
			return f.list, f.listErr
		},
		IDOf: func(e entity) string { return e.ID },
	}
}

func newCascade(f *fakeSource, opts ...Option) *Cascade[entity] {
	return New("entity", Standard(f.source()), opts...)
}

func TestRepairBraces(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"duplicated closing braces", `{"a":1}}}}}`, `{"a":1}`},
		{"nested object", `{"a":{"b":2}}}`, `{"a":{"b":2}}`},
		{"already balanced", `{"a":1}`, `{"a":1}`},
		{"never balances", `{"a":{"b":1}`, `{"a":{"b":1}`},
		{"no braces", `[1,2,3]`, `[1,2,3]`},
		{"empty", ``, ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(RepairBraces([]byte(tc.in))))
		})
	}

	var decoded map[string]int
	require.NoError(t, executor.Decode(RepairBraces([]byte(`{"a":1}}}}}`)), &decoded))
	assert.Equal(t, map[string]int{"a": 1}, decoded)
}

func TestPrimarySuccessSkipsFallbacks(t *testing.T) {
	f := &fakeSource{fetched: entity{ID: "5", Name: "checking"}}
	got, err := newCascade(f).ReadWithFallback(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "checking", got.Name)
	assert.Equal(t, []string{StepPrimary}, f.calls)
}

func TestIdempotentHealthyRead(t *testing.T) {
	f := &fakeSource{fetched: entity{ID: "5", Name: "checking"}}
	var steps []string
	c := newCascade(f, WithOnStep(func(r StepResult) { steps = append(steps, r.Step) }))

	first, err := c.ReadWithFallback(context.Background(), "5")
	require.NoError(t, err)
	second, err := c.ReadWithFallback(context.Background(), "5")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{StepPrimary, StepPrimary}, steps, "no fallback step ran")
}

func TestDecodeErrorIsRepaired(t *testing.T) {
	f := &fakeSource{
		fetchErr: apierr.New(apierr.DecodeError, "malformed JSON"),
		raw:      `{"id":"5","name":"savings"}}}}`,
	}
	got, err := newCascade(f).ReadWithFallback(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, entity{ID: "5", Name: "savings"}, got)
	assert.Equal(t, []string{StepPrimary, StepRawRepair}, f.calls)
}

func TestFailedRepairFallsBackToList(t *testing.T) {
	f := &fakeSource{
		fetchErr: apierr.New(apierr.DecodeError, "malformed JSON"),
		raw:      `{"id":"5","name":`,
		list:     []entity{{ID: "1"}, {ID: "5", Name: "from list"}},
	}
	got, err := newCascade(f).ReadWithFallback(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "from list", got.Name)
	assert.Equal(t, []string{StepPrimary, StepRawRepair, StepListFallback}, f.calls)
}

func TestNotFoundFallsBackToList(t *testing.T) {
	f := &fakeSource{
		fetchErr: apierr.FromStatus(404, nil),
		list:     []entity{{ID: "1"}, {ID: "42", Name: "answer"}, {ID: "7"}},
	}
	got, err := newCascade(f).ReadWithFallback(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "answer", got.Name)
	assert.Equal(t, []string{StepPrimary, StepListFallback}, f.calls, "raw repair only runs on decode errors")
}

func TestListMissReportsNotFound(t *testing.T) {
	f := &fakeSource{
		fetchErr: apierr.FromStatus(500, nil),
		list:     []entity{{ID: "1"}, {ID: "42"}, {ID: "7"}},
	}
	_, err := newCascade(f).ReadWithFallback(context.Background(), "99")
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err), "not found is preferred over the primary server error")
	assert.Equal(t, []string{StepPrimary, StepListFallback}, f.calls)
}

func TestMostSpecificFailureWins(t *testing.T) {
	f := &fakeSource{
		fetchErr: apierr.FromStatus(404, nil),
		listErr:  apierr.FromStatus(503, nil),
	}
	_, err := newCascade(f).ReadWithFallback(context.Background(), "3")
	assert.Equal(t, apierr.NotFound, apierr.KindOf(err))
}

func TestIneligibleFailurePropagates(t *testing.T) {
	for _, kind := range []apierr.Kind{apierr.Forbidden, apierr.Conflict, apierr.NetworkUnreachable, apierr.Unknown} {
		t.Run(kind.String(), func(t *testing.T) {
			f := &fakeSource{fetchErr: apierr.New(kind, "boom")}
			_, err := newCascade(f).ReadWithFallback(context.Background(), "1")
			assert.Equal(t, kind, apierr.KindOf(err))
			assert.Equal(t, []string{StepPrimary}, f.calls)
		})
	}
}

func TestTerminalFailuresAbort(t *testing.T) {
	f := &fakeSource{
		fetchErr: apierr.New(apierr.DecodeError, "malformed"),
		rawErr:   apierr.Expired(nil),
		list:     []entity{{ID: "1"}},
	}
	_, err := newCascade(f).ReadWithFallback(context.Background(), "1")
	assert.Equal(t, apierr.AuthExpired, apierr.KindOf(err))
	assert.Equal(t, []string{StepPrimary, StepRawRepair}, f.calls)
}

func TestCancelledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeSource{list: []entity{{ID: "1"}}}
	f.fetchErr = apierr.FromStatus(500, nil)

	c := New("entity", Standard(Source[entity]{
		Fetch: func(ctx context.Context, id string) (entity, error) {
			cancel()
			return entity{}, f.fetchErr
		},
		List: f.source().List,
		IDOf: f.source().IDOf,
	}))
	_, err := c.ReadWithFallback(ctx, "1")
	assert.Equal(t, apierr.Cancelled, apierr.KindOf(err))
	assert.Empty(t, f.calls)
}

func TestOnStepReportsEveryExecutedStep(t *testing.T) {
	f := &fakeSource{
		fetchErr: apierr.New(apierr.DecodeError, "malformed"),
		raw:      `not json`,
		list:     []entity{{ID: "2"}},
	}
	var results []StepResult
	c := newCascade(f, WithOnStep(func(r StepResult) { results = append(results, r) }))

	_, err := c.ReadWithFallback(context.Background(), "2")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, apierr.DecodeError, apierr.KindOf(results[0].Err))
	assert.Equal(t, apierr.DecodeError, apierr.KindOf(results[1].Err))
	assert.NoError(t, results[2].Err)
	for _, r := range results {
		assert.Equal(t, "entity", r.Resource)
		assert.Equal(t, "2", r.ID)
	}
}

func TestCustomSteps(t *testing.T) {
	runs := 0
	c := New("custom", []Step[int]{
		{Name: "first", Run: func(context.Context, string) (int, error) { runs++; return 0, errors.New("nope") }},
		{Name: "skipped", When: func(Failure) bool { return false }, Run: func(context.Context, string) (int, error) { runs++; return 1, nil }},
		{Name: "last", Run: func(context.Context, string) (int, error) { runs++; return 2, nil }},
	})
	got, err := c.ReadWithFallback(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, runs)
}
