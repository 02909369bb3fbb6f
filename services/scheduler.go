package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const loginTokenPurgeInterval = 5 * time.Minute

// Scheduler запускает периодические фоновые задачи процесса.
// Сейчас единственная задача — чистка просроченных токенов входа.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

func NewScheduler(loginStore *TelegramLoginStore, logger *slog.Logger) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(loginTokenPurgeInterval),
		gocron.NewTask(func() {
			if purged := loginStore.Purge(); purged > 0 {
				logger.Info("purged expired telegram login tokens", slog.Int("count", purged))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule login token purge: %w", err)
	}

	return &Scheduler{
		scheduler: scheduler,
		logger:    logger,
	}, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error("failed to shut down scheduler", slog.Any("error", err))
	}
}
