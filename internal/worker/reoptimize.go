package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/route"
)

// Optimizer re-optimizes a single route.
type Optimizer interface {
	Optimize(ctx context.Context, routeID string) (*route.OptimizeOutcome, error)
}

// RouteLister enumerates routes planned for a calendar date.
type RouteLister interface {
	ListRouteIDsByDate(ctx context.Context, date time.Time) ([]string, error)
}

// ReoptimizeJob re-runs optimization over planned routes, typically after
// a degraded period when routes were timed by the local estimator.
type ReoptimizeJob struct {
	config    SweepConfig
	logger    zerolog.Logger
	optimizer Optimizer
	lister    RouteLister

	metrics *SweepMetrics
}

// SweepMetrics tracks sweep job statistics.
type SweepMetrics struct {
	mu sync.RWMutex

	TotalSweeps     int64
	RoutesOptimized int64
	RoutesDegraded  int64
	RoutesFailed    int64

	LastSweepAt       time.Time
	LastSweepDuration time.Duration
	TotalDuration     time.Duration
}

// ReoptimizeJobConfig holds configuration for creating a ReoptimizeJob.
type ReoptimizeJobConfig struct {
	Config    SweepConfig
	Logger    zerolog.Logger
	Optimizer Optimizer
	Lister    RouteLister
}

// NewReoptimizeJob creates a new re-optimization job processor.
func NewReoptimizeJob(cfg ReoptimizeJobConfig) *ReoptimizeJob {
	return &ReoptimizeJob{
		config:    cfg.Config.withDefaults(),
		logger:    cfg.Logger,
		optimizer: cfg.Optimizer,
		lister:    cfg.Lister,
		metrics:   &SweepMetrics{},
	}
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalRoutes int
	Optimized   int
	Degraded    int
	Failed      int
	Errors      []SweepError
}

// SweepError records a route that could not be re-optimized.
type SweepError struct {
	RouteID string
	Error   string
}

// RunSweep re-optimizes every route planned for the given date.
func (j *ReoptimizeJob) RunSweep(ctx context.Context, date time.Time) (*SweepResult, error) {
	startTime := time.Now()

	routeIDs, err := j.lister.ListRouteIDsByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{
		StartTime:   startTime,
		TotalRoutes: len(routeIDs),
	}

	j.logger.Info().
		Str("date", date.Format("2006-01-02")).
		Int("total_routes", result.TotalRoutes).
		Int("concurrency", j.config.Concurrency).
		Msg("starting re-optimization sweep")

	idsChan := make(chan string, len(routeIDs))
	resultsChan := make(chan routeResult, len(routeIDs))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.sweepWorker(ctx, idsChan, resultsChan)
		}()
	}

	for _, id := range routeIDs {
		idsChan <- id
	}
	close(idsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for rr := range resultsChan {
		switch {
		case rr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, SweepError{RouteID: rr.routeID, Error: rr.err.Error()})
		case rr.degraded:
			result.Degraded++
		default:
			result.Optimized++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("optimized", result.Optimized).
		Int("degraded", result.Degraded).
		Int("failed", result.Failed).
		Msg("re-optimization sweep completed")

	return result, nil
}

type routeResult struct {
	routeID  string
	degraded bool
	err      error
}

func (j *ReoptimizeJob) sweepWorker(ctx context.Context, ids <-chan string, results chan<- routeResult) {
	for routeID := range ids {
		select {
		case <-ctx.Done():
			return
		default:
			degraded, err := j.ReoptimizeRoute(ctx, routeID)
			results <- routeResult{routeID: routeID, degraded: degraded, err: err}
		}
	}
}

// ReoptimizeRoute optimizes one route with bounded retries. Transient
// failures (storage hiccups) are retried with exponential backoff; domain
// failures are permanent and surface immediately.
func (j *ReoptimizeJob) ReoptimizeRoute(ctx context.Context, routeID string) (degraded bool, err error) {
	routeCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = j.config.RetryInterval

	var outcome *route.OptimizeOutcome
	operation := func() error {
		var opErr error
		outcome, opErr = j.optimizer.Optimize(routeCtx, routeID)
		if opErr == nil {
			return nil
		}
		if isPermanent(opErr) {
			return backoff.Permanent(opErr)
		}
		return opErr
	}

	err = backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(j.config.MaxAttempts-1)), //nolint:gosec // MaxAttempts >= 1 after withDefaults
		routeCtx,
	))
	if err != nil {
		j.logger.Error().Err(err).Str("route_id", routeID).Msg("re-optimization failed")
		return false, err
	}

	if outcome.Degraded {
		j.logger.Warn().Str("route_id", routeID).Msg("re-optimization degraded to estimator")
	}
	return outcome.Degraded, nil
}

// isPermanent reports whether retrying the optimization cannot help.
func isPermanent(err error) bool {
	return errors.Is(err, route.ErrRouteNotFound) ||
		errors.Is(err, route.ErrRouteCancelled) ||
		errors.Is(err, route.ErrNoStops) ||
		errors.Is(err, directions.ErrNoRouteFound) ||
		errors.Is(err, directions.ErrInvalidRequest)
}

func (j *ReoptimizeJob) updateMetrics(result *SweepResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	j.metrics.RoutesOptimized += int64(result.Optimized)
	j.metrics.RoutesDegraded += int64(result.Degraded)
	j.metrics.RoutesFailed += int64(result.Failed)
	j.metrics.LastSweepAt = result.EndTime
	j.metrics.LastSweepDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *ReoptimizeJob) GetMetrics() SweepMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return SweepMetrics{
		TotalSweeps:       j.metrics.TotalSweeps,
		RoutesOptimized:   j.metrics.RoutesOptimized,
		RoutesDegraded:    j.metrics.RoutesDegraded,
		RoutesFailed:      j.metrics.RoutesFailed,
		LastSweepAt:       j.metrics.LastSweepAt,
		LastSweepDuration: j.metrics.LastSweepDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ReoptimizeJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_sweeps":        m.TotalSweeps,
		"routes_optimized":    m.RoutesOptimized,
		"routes_degraded":     m.RoutesDegraded,
		"routes_failed":       m.RoutesFailed,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
