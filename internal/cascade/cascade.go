// Package cascade runs fragile reads through an ordered chain of fallback
// strategies. Each step runs at most once; the chain only moves forward.
package cascade

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

// Failure is the outcome of the last executed step, handed to the next
// step's predicate.
type Failure struct {
	Step string
	Err  error
}

// Kind is the failure classification of Err.
func (f Failure) Kind() apierr.Kind {
	return apierr.KindOf(f.Err)
}

// Step is one named strategy. When decides, from the previous executed step's
// failure, whether this step runs. A nil When always runs.
type Step[T any] struct {
	Name string
	When func(prev Failure) bool
	Run  func(ctx context.Context, id string) (T, error)
}

// StepResult reports one executed step to an OnStep hook.
type StepResult struct {
	Resource string
	ID       string
	Step     string
	Err      error
	Duration time.Duration
}

// Cascade reads a T by id through its steps in order.
type Cascade[T any] struct {
	resource string
	steps    []Step[T]
	onStep   func(StepResult)
	log      zerolog.Logger
}

// Option configures a Cascade.
type Option func(*config)

type config struct {
	onStep func(StepResult)
}

// WithOnStep registers a hook called after every executed step.
func WithOnStep(fn func(StepResult)) Option {
	return func(c *config) { c.onStep = fn }
}

// New creates a cascade for resource. The first step is the primary strategy
// and always runs.
func New[T any](resource string, steps []Step[T], opts ...Option) *Cascade[T] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cascade[T]{
		resource: resource,
		steps:    steps,
		onStep:   cfg.onStep,
		log:      logger.For("cascade").With().Str("resource", resource).Logger(),
	}
}

// ReadWithFallback returns the first successful step's result. When every
// eligible step fails, the most specific failure seen is returned. Cancelled
// and AuthExpired stop the chain at once.
func (c *Cascade[T]) ReadWithFallback(ctx context.Context, id string) (T, error) {
	var zero T
	var prev Failure
	var failures []error

	for i, step := range c.steps {
		if i > 0 && step.When != nil && !step.When(prev) {
			continue
		}
		if err := apierr.FromContext(ctx); err != nil {
			return zero, err
		}

		start := time.Now()
		v, err := step.Run(ctx, id)
		c.report(id, step.Name, err, time.Since(start))
		if err == nil {
			if i > 0 {
				c.log.Info().Str("id", id).Str("step", step.Name).Msg("Read recovered by fallback")
			}
			return v, nil
		}

		if kind := apierr.KindOf(err); kind == apierr.Cancelled || kind == apierr.AuthExpired {
			return zero, err
		}
		failures = append(failures, err)
		prev = Failure{Step: step.Name, Err: err}
	}

	if len(failures) == 0 {
		return zero, apierr.New(apierr.Unknown, "no read strategy configured")
	}
	return zero, apierr.MostSpecific(failures...)
}

func (c *Cascade[T]) report(id, step string, err error, d time.Duration) {
	ev := c.log.Debug().Str("id", id).Str("step", step).Dur("duration", d)
	if err != nil {
		ev = ev.Err(err).Str("kind", apierr.KindOf(err).String())
	}
	ev.Msg("Cascade step finished")

	if c.onStep != nil {
		c.onStep(StepResult{Resource: c.resource, ID: id, Step: step, Err: err, Duration: d})
	}
}
