package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fx-impact-lab/internal/logger"
	"fx-impact-lab/internal/observability"
	"fx-impact-lab/internal/orchestrator"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = orchestrator.ErrRunInProgress

// Scheduler runs the report pipeline on a cron schedule over a rolling
// lookback window, and on demand. Runs never overlap.
type Scheduler struct {
	pipeline     *ReportPipeline
	cron         *cron.Cron
	lookbackDays int
	now          func() time.Time
	metrics      *observability.Metrics
	log          *logger.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	last    *Output
}

// NewScheduler creates a scheduler for p.
func NewScheduler(p *ReportPipeline, lookbackDays int, m *observability.Metrics, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		pipeline:     p,
		cron:         cron.New(cron.WithLocation(time.UTC)),
		lookbackDays: lookbackDays,
		now:          time.Now,
		metrics:      m,
		log:          log.With(logger.String("component", "scheduler")),
		ctx:          context.Background(),
	}
}

// Start registers the schedule and starts the cron loop. Scheduled runs use
// ctx and stop being triggered once Stop is called.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", logger.String("schedule", schedule))
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Run executes the pipeline once for req. It implements the run trigger of
// the HTTP API so on-demand runs also write the report files.
func (s *Scheduler) Run(ctx context.Context, req orchestrator.RunRequest) (*orchestrator.RunResult, error) {
	out, err := s.run(ctx, req)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Last returns the output of the latest successful run, or nil.
func (s *Scheduler) Last() *Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) runScheduled() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	end := s.now().UTC()
	req := orchestrator.RunRequest{Start: end.AddDate(0, 0, -s.lookbackDays), End: end}
	if _, err := s.run(ctx, req); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.log.Warn("scheduled run skipped, previous run still active")
			return
		}
		s.log.Error("scheduled run failed", logger.Err(err))
	}
}

func (s *Scheduler) run(ctx context.Context, req orchestrator.RunRequest) (*Output, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	out, err := s.pipeline.Run(ctx, req)
	s.metrics.RecordPhase("pipeline", time.Since(start))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = out
	s.mu.Unlock()

	s.log.Info("run completed",
		logger.String("run_id", out.Result.RunID),
		logger.Int("groups", len(out.Result.Stats)),
		logger.Int("sufficient", out.Result.SufficientGroups()),
		logger.Duration("duration", time.Since(start)),
	)
	return out, nil
}
