package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/proveen/testimonial-bot/internal/config"
	"github.com/proveen/testimonial-bot/internal/reviews"
)

// Service schedules the periodic review source refresh.
type Service struct {
	config         *config.Config
	reviewsService *reviews.Service
	cron           *cron.Cron
}

// NewService creates a scheduler service.
func NewService(cfg *config.Config, reviewsService *reviews.Service) *Service {
	return &Service{
		config:         cfg,
		reviewsService: reviewsService,
		cron:           cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled refresh runs.
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.RefreshSchedule {
	case "hourly":
		cronExpression = "0 0 * * * *"
	case "daily":
		// Run daily at 6 AM UTC, before most business hours.
		cronExpression = "0 0 6 * * *"
	default:
		cronExpression = "0 0 6 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled review source refresh")
		if err := s.reviewsService.RefreshAll(context.Background()); err != nil {
			logrus.Errorf("Scheduled refresh failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s refresh schedule", s.config.RefreshSchedule)
	return nil
}

// Stop stops the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
