package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/otel"
	"github.com/abelbrown/reactions/internal/provider"
)

// Strategy is one provider in a fallback chain.
type Strategy[I, O any] interface {
	Name() string
	Available() bool
	Run(ctx context.Context, in I) (O, error)
}

// Outcome is the chain's result: a value from the first provider whose
// output was accepted, or a failure with a readable reason. Value is the
// zero value whenever Err is set.
type Outcome[O any] struct {
	Value    O
	Provider string
	Err      error
	Reason   string
}

// OK reports whether a provider produced acceptable output.
func (o Outcome[O]) OK() bool { return o.Err == nil }

// Refused reports whether at least one provider answered with a refusal.
func (o Outcome[O]) Refused() bool { return errors.Is(o.Err, provider.ErrRefused) }

// ErrAllFailed is returned when every provider errored or was rejected.
var ErrAllFailed = errors.New("all providers failed")

// Chain tries strategies in order until one yields acceptable output.
type Chain[I, O any] struct {
	kind       string
	strategies []Strategy[I, O]
	accept     func(O) error
	events     *otel.Logger
}

// NewChain builds a chain. accept returns nil for usable output.
func NewChain[I, O any](kind string, accept func(O) error, strategies ...Strategy[I, O]) *Chain[I, O] {
	return &Chain[I, O]{kind: kind, strategies: strategies, accept: accept}
}

// SetEvents attaches an event log for fallback and refusal events.
func (c *Chain[I, O]) SetEvents(l *otel.Logger) { c.events = l }

// Providers lists the configured strategies that are available.
func (c *Chain[I, O]) Providers() []string {
	var names []string
	for _, s := range c.strategies {
		if s.Available() {
			names = append(names, s.Name())
		}
	}
	return names
}

// Run executes the chain.
func (c *Chain[I, O]) Run(ctx context.Context, in I) Outcome[O] {
	var failures []string
	refused := false

	for _, s := range c.strategies {
		if !s.Available() {
			continue
		}
		if ctx.Err() != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name(), ctx.Err()))
			break
		}

		out, err := s.Run(ctx, in)
		if err == nil && c.accept != nil {
			err = c.accept(out)
		}
		if err == nil {
			if len(failures) > 0 {
				logging.Info("generation fallback succeeded", "kind", c.kind, "provider", s.Name(), "skipped", len(failures))
			}
			return Outcome[O]{Value: out, Provider: s.Name()}
		}

		if errors.Is(err, provider.ErrRefused) {
			refused = true
			c.emit(otel.KindGenRefused, s.Name(), err)
			logging.Warn("generation refused", "kind", c.kind, "provider", s.Name())
		} else {
			c.emit(otel.KindGenFallback, s.Name(), err)
			logging.Warn("generation provider failed", "kind", c.kind, "provider", s.Name(), "error", err)
		}
		failures = append(failures, fmt.Sprintf("%s: %v", s.Name(), err))
	}

	if len(failures) == 0 {
		reason := fmt.Sprintf("no %s generation provider configured", c.kind)
		return Outcome[O]{Err: provider.Unavailable(c.kind, reason), Reason: reason}
	}

	reason := fmt.Sprintf("%s generation unavailable (%s)", c.kind, strings.Join(failures, "; "))
	err := ErrAllFailed
	if refused {
		err = fmt.Errorf("%w: %w", ErrAllFailed, provider.ErrRefused)
	}
	return Outcome[O]{Err: err, Reason: reason}
}

func (c *Chain[I, O]) emit(kind otel.EventKind, name string, err error) {
	if c.events == nil {
		return
	}
	c.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: kind, Comp: "brain", Source: name, Msg: c.kind, Err: err.Error()})
}

// AcceptText rejects empty output and refusals.
func AcceptText(r Response) error {
	if strings.TrimSpace(r.Content) == "" {
		return errors.New("empty output")
	}
	if IsRefusal(r.Content) {
		return provider.ErrRefused
	}
	return nil
}

// AcceptAudio rejects empty audio.
func AcceptAudio(a Audio) error {
	if len(a.Data) == 0 {
		return errors.New("empty audio")
	}
	return nil
}
