package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/weather"
)

// RefreshJob pre-warms provider caches.
type RefreshJob struct {
	config RefreshConfig
	logger zerolog.Logger

	// Providers (optional, nil if not configured). These are normally the
	// caching services so a fetch refreshes the cache.
	weather    weather.Provider
	directions routing.Provider

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRefreshes    int64
	SuccessfulRefresh int64
	FailedRefreshes   int64
	WeatherRefresh    int64
	DirectionsRefresh int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config     RefreshConfig
	Logger     zerolog.Logger
	Weather    weather.Provider
	Directions routing.Provider
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 && len(config.Pairs) == 0 {
		config = DefaultRefreshConfig()
	}
	if config.Concurrency < 1 {
		config.Concurrency = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxAlternatives == 0 {
		config.MaxAlternatives = routing.DefaultBuilderConfig().RequestedAlternatives()
	}

	return &RefreshJob{
		config:     config,
		logger:     cfg.Logger,
		weather:    cfg.Weather,
		directions: cfg.Directions,
		metrics:    &RefreshMetrics{},
	}
}

// Config returns the effective configuration.
func (j *RefreshJob) Config() RefreshConfig {
	return j.config
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalTasks int
	Successful int
	Failed     int
	Errors     []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	Provider string
	Task     string
	Error    string
}

// task is one unit of refresh work.
type task struct {
	provider string
	name     string
	run      func(ctx context.Context) error
}

// Run executes the refresh job for all configured targets and pairs.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	tasks := j.tasks()
	result := &RefreshResult{
		StartTime:  startTime,
		TotalTasks: len(tasks),
	}

	j.logger.Info().
		Int("total_tasks", len(tasks)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache pre-warm job")

	taskChan := make(chan task, len(tasks))
	resultsChan := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, taskChan, resultsChan)
		}()
	}

	for _, t := range tasks {
		taskChan <- t
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		if tr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{
			Provider: tr.task.provider,
			Task:     tr.task.name,
			Error:    tr.err.Error(),
		})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("cache pre-warm job completed")

	return result
}

type taskResult struct {
	task task
	err  error
}

func (j *RefreshJob) tasks() []task {
	var tasks []task

	if j.config.RefreshWeather && j.weather != nil {
		for _, p := range j.config.AllPoints() {
			tasks = append(tasks, task{
				provider: "weather",
				name:     p.String(),
				run:      func(ctx context.Context) error { return j.refreshWeather(ctx, p) },
			})
		}
	}

	if j.config.RefreshDirections && j.directions != nil {
		for _, pair := range j.config.Pairs {
			tasks = append(tasks, task{
				provider: "directions",
				name:     pair.Origin.Name + " -> " + pair.Destination.Name,
				run:      func(ctx context.Context) error { return j.refreshDirections(ctx, pair) },
			})
		}
	}

	return tasks
}

func (j *RefreshJob) refreshWorker(ctx context.Context, tasks <-chan task, results chan<- taskResult) {
	for t := range tasks {
		select {
		case <-ctx.Done():
			results <- taskResult{task: t, err: ctx.Err()}
		default:
			taskCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
			err := t.run(taskCtx)
			cancel()
			results <- taskResult{task: t, err: err}
		}
	}
}

func (j *RefreshJob) refreshWeather(ctx context.Context, point geo.Coordinate) error {
	if _, err := j.weather.CurrentSample(ctx, point); err != nil {
		return err
	}
	atomic.AddInt64(&j.metrics.WeatherRefresh, 1)
	return nil
}

func (j *RefreshJob) refreshDirections(ctx context.Context, pair RoutePair) error {
	_, err := j.directions.Directions(ctx, routing.DirectionsRequest{
		Origin:          pair.Origin.Point,
		Destination:     pair.Destination.Point,
		MaxAlternatives: j.config.MaxAlternatives,
	})
	if err != nil {
		return err
	}
	atomic.AddInt64(&j.metrics.DirectionsRefresh, 1)
	return nil
}

// CheckPoint fetches weather at a single point to verify provider connectivity.
func (j *RefreshJob) CheckPoint(ctx context.Context, point geo.Coordinate) error {
	if j.weather == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()
	_, err := j.weather.CurrentSample(ctx, point)
	return err
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRefreshes++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		SuccessfulRefresh:   j.metrics.SuccessfulRefresh,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		WeatherRefresh:      atomic.LoadInt64(&j.metrics.WeatherRefresh),
		DirectionsRefresh:   atomic.LoadInt64(&j.metrics.DirectionsRefresh),
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_refreshes":       m.TotalRefreshes,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"weather_refreshes":     m.WeatherRefresh,
		"directions_refreshes":  m.DirectionsRefresh,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
