// Package estimator calls an external calibrated probability model over HTTP.
// Calls are guarded by a circuit breaker; the fusion engine falls back to its
// rule-based estimator whenever Estimate returns an error.
package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/JaimeStill/verity/internal/evidence"
	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/internal/metrics"
	"github.com/JaimeStill/verity/pkg/formatting"
)

const maxResponseSize = 1 << 20

// ErrInvalidProbability is returned when the model answers outside [0,1].
var ErrInvalidProbability = errors.New("estimator returned invalid probability")

type request struct {
	Features evidence.Bundle      `json:"features"`
	Metrics  []fusion.MetricScore `json:"metrics"`
}

type response struct {
	Probability *float64 `json:"probability"`
}

// HTTP is a fusion.Estimator backed by a remote model.
type HTTP struct {
	name   string
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[float64]
	logger *slog.Logger
}

// New creates an HTTP estimator from a finalized, enabled config.
func New(cfg *Config, logger *slog.Logger) *HTTP {
	e := &HTTP{
		name:   cfg.Name,
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.TimeoutDuration()},
		logger: logger.With("system", "estimator", "estimator", cfg.Name),
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	threshold := cfg.FailureThreshold
	e.cb = gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.IntervalDuration(),
		Timeout:     cfg.OpenTimeoutDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return e
}

// Name identifies the estimator in results and logs.
func (e *HTTP) Name() string {
	return e.name
}

// State reports the circuit breaker state.
func (e *HTTP) State() gobreaker.State {
	return e.cb.State()
}

// Estimate posts the bundle and catalogue scores to the model and returns
// its probability.
func (e *HTTP) Estimate(ctx context.Context, b evidence.Bundle, ms []fusion.MetricScore) (float64, error) {
	p, err := e.cb.Execute(func() (float64, error) {
		return e.call(ctx, b, ms)
	})

	switch {
	case err == nil:
		metrics.EstimatorRequests.WithLabelValues(e.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.EstimatorRequests.WithLabelValues(e.name, "rejected").Inc()
	default:
		metrics.EstimatorRequests.WithLabelValues(e.name, "failure").Inc()
	}

	return p, err
}

func (e *HTTP) call(ctx context.Context, b evidence.Bundle, ms []fusion.MetricScore) (float64, error) {
	body, err := json.Marshal(request{Features: b, Metrics: ms})
	if err != nil {
		return 0, fmt.Errorf("marshal estimator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create estimator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call estimator: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, fmt.Errorf("read estimator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("estimator returned status %d", resp.StatusCode)
	}

	parsed, err := formatting.Parse[response](data)
	if err != nil {
		return 0, err
	}
	if parsed.Probability == nil {
		return 0, fmt.Errorf("%w: missing probability", ErrInvalidProbability)
	}

	p := *parsed.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProbability, p)
	}
	return p, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
