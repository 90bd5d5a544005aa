package runner

import (
	"log/slog"

	"github.com/aretw0/weave/pkg/domain"
	"go.opentelemetry.io/otel/trace"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithTracer configures the tracer used for run spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = t
	}
}

// WithHistory enables chat history. Without it, runs naming a chat fail.
func WithHistory(h *History) Option {
	return func(r *Runner) {
		r.history = h
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = h
	}
}

// WithMetrics configures the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithInterceptor configures the run policy.
func WithInterceptor(i Interceptor) Option {
	return func(r *Runner) {
		r.interceptor = i
	}
}

// WithMaxInputSize bounds the size of descriptions and string tool input.
func WithMaxInputSize(n int) Option {
	return func(r *Runner) {
		r.maxInput = n
	}
}

// WithProduction hides stack traces from initialization errors.
func WithProduction(production bool) Option {
	return func(r *Runner) {
		r.production = production
	}
}
