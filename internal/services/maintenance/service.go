// Package maintenance runs periodic housekeeping jobs alongside the server
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mcoot/globaldex/internal/services/admission"
)

// StatsSource reports admission queue state
type StatsSource interface {
	Stats() []admission.Stats
}

// Checkpointer folds a write-ahead log back into the database
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// Config sets the job intervals. A non-positive interval disables the job.
type Config struct {
	StatsInterval      time.Duration
	CheckpointInterval time.Duration
	// CheckpointTimeout bounds a single checkpoint run
	CheckpointTimeout time.Duration
}

// Service owns the scheduler and its jobs
type Service struct {
	scheduler    gocron.Scheduler
	stats        StatsSource
	checkpointer Checkpointer
	cfg          Config
	logger       *slog.Logger
	started      bool
}

// New creates the scheduler and registers the jobs. checkpointer may be nil
// for backends without a write-ahead log.
func New(cfg Config, stats StatsSource, checkpointer Checkpointer, logger *slog.Logger) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if cfg.CheckpointTimeout <= 0 {
		cfg.CheckpointTimeout = 30 * time.Second
	}

	s := &Service{
		scheduler:    scheduler,
		stats:        stats,
		checkpointer: checkpointer,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "maintenance")),
	}

	if cfg.StatsInterval > 0 && stats != nil {
		if _, err := scheduler.NewJob(
			gocron.DurationJob(cfg.StatsInterval),
			gocron.NewTask(s.ReportQueues),
			gocron.WithName("queue-stats"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("schedule queue stats: %w", err)
		}
	}

	if cfg.CheckpointInterval > 0 && checkpointer != nil {
		if _, err := scheduler.NewJob(
			gocron.DurationJob(cfg.CheckpointInterval),
			gocron.NewTask(s.runCheckpoint),
			gocron.WithName("wal-checkpoint"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("schedule checkpoint: %w", err)
		}
	}

	return s, nil
}

// Start begins running scheduled jobs
func (s *Service) Start() {
	s.started = true
	s.scheduler.Start()
	s.logger.Info("maintenance started", slog.Int("jobs", len(s.scheduler.Jobs())))
}

// Stop waits for running jobs and shuts the scheduler down
func (s *Service) Stop() error {
	if !s.started {
		return nil
	}
	s.started = false
	return s.scheduler.Shutdown()
}

// ReportQueues logs the depth and counters of every admission queue
func (s *Service) ReportQueues() {
	for _, st := range s.stats.Stats() {
		level := slog.LevelInfo
		if st.Capacity > 0 && st.Depth*10 >= st.Capacity*8 {
			level = slog.LevelWarn
		}
		s.logger.Log(context.Background(), level, "queue stats",
			slog.String("queue", st.Name),
			slog.Int("depth", st.Depth),
			slog.Int("capacity", st.Capacity),
			slog.Int("workers", st.Workers),
			slog.Uint64("processed", st.Processed),
			slog.Uint64("failed", st.Failed),
			slog.Uint64("rejected", st.Rejected),
		)
	}
}

// Checkpoint runs one WAL checkpoint
func (s *Service) Checkpoint(ctx context.Context) error {
	if s.checkpointer == nil {
		return nil
	}
	start := time.Now()
	if err := s.checkpointer.Checkpoint(ctx); err != nil {
		return err
	}
	s.logger.Info("wal checkpoint complete", slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *Service) runCheckpoint() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CheckpointTimeout)
	defer cancel()
	if err := s.Checkpoint(ctx); err != nil {
		s.logger.Error("wal checkpoint failed", slog.String("error", err.Error()))
	}
}
