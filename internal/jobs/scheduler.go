package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"coursehub/internal/queue"
)

const cleanupSpec = "0 0 0 * * *" // daily at midnight

type Scheduler struct {
	cron      *cron.Cron
	publisher queue.Publisher
	log       zerolog.Logger
}

func NewScheduler(publisher queue.Publisher, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		publisher: publisher,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.publisher == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(cleanupSpec, s.enqueueCleanup); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.publisher.Publish(ctx, queue.Task{Type: queue.TaskNotificationsCleanup}); err != nil {
		s.log.Error().Err(err).Msg("enqueue notification cleanup failed")
		return
	}
	s.log.Debug().Msg("notification cleanup enqueued")
}
