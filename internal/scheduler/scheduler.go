package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"karakeep_sync/internal/domain"
	"karakeep_sync/internal/service"
	"karakeep_sync/internal/source"
)

// Syncer defines the interface for sync operations.
type Syncer interface {
	Sync(ctx context.Context, src service.Source) (*domain.SyncStats, error)
}

type Config struct {
	// RunImmediately triggers one run per source at startup.
	RunImmediately bool
	RunTimeout     time.Duration
}

// Scheduler runs every source on its own cron schedule. Runs of different
// sources may overlap; a run of a source that is still busy is skipped.
type Scheduler struct {
	syncer  Syncer
	sources []source.Source
	cfg     Config
	cron    *cron.Cron
	jobs    map[string]cron.Job
	wg      sync.WaitGroup
	logger  *slog.Logger
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const defaultRunTimeout = 10 * time.Minute

func NewScheduler(syncer Syncer, sources []source.Source, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	return &Scheduler{
		syncer:  syncer,
		sources: sources,
		cfg:     cfg,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLogger{logger}),
		),
		jobs:   make(map[string]cron.Job, len(sources)),
		logger: logger,
	}
}

// Start registers every source and blocks until ctx is cancelled. An
// unparseable schedule is reported before any source runs.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.register(ctx); err != nil {
		return err
	}

	if len(s.sources) == 0 {
		s.logger.Warn("no sources activated, nothing to schedule")
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "sources", len(s.sources))

	if s.cfg.RunImmediately {
		for _, src := range s.sources {
			job := s.jobs[src.ID()]
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				job.Run()
			}()
		}
	}

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) register(ctx context.Context) error {
	skip := cron.NewChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger}))

	for _, src := range s.sources {
		job := skip.Then(cron.FuncJob(func() {
			s.runSync(ctx, src)
		}))

		if _, err := s.cron.AddJob(src.Schedule(), job); err != nil {
			return domain.ConfigError(
				fmt.Sprintf("schedule source %s", src.ID()),
				fmt.Errorf("parse %q: %w", src.Schedule(), err),
			)
		}
		s.jobs[src.ID()] = job

		s.logger.Info("source scheduled",
			"source", src.ID(),
			"list", src.ListName(),
			"schedule", src.Schedule(),
		)
	}
	return nil
}

func (s *Scheduler) runSync(ctx context.Context, src source.Source) {
	if ctx.Err() != nil {
		return
	}

	syncCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	if _, err := s.syncer.Sync(syncCtx, src); err != nil {
		s.logger.Error("sync failed", "source", src.ID(), "error", err)
	}
}

// cronLogger routes cron's own log lines through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
