package scheduler

import (
	"context"

	"github.com/thirdhand/marketplace/internal/application/maintenance"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
)

// Maintenance task names
const (
	TaskExpirePayments = "expire-stale-payments"
	TaskPresenceSweep  = "presence-sweep"
	TaskDeadLetters    = "outbox-dead-letters"
)

// MaintenanceTasks builds the marketplace housekeeping tasks
func MaintenanceTasks(cfg config.SchedulerConfig, svc *maintenance.Service) []Task {
	return []Task{
		{
			Name:     TaskExpirePayments,
			Interval: cfg.PaymentExpiryInterval,
			Run: func(ctx context.Context) error {
				_, err := svc.ExpireStalePayments(ctx)
				return err
			},
		},
		{
			Name:     TaskPresenceSweep,
			Interval: cfg.PresenceInterval,
			Run: func(ctx context.Context) error {
				_, err := svc.SweepPresence(ctx)
				return err
			},
		},
		{
			Name:     TaskDeadLetters,
			Interval: cfg.DeadLetterInterval,
			Run: func(ctx context.Context) error {
				_, err := svc.ReportDeadLetters(ctx)
				return err
			},
		},
	}
}

// RegisterMaintenance registers the housekeeping tasks on s
func RegisterMaintenance(s *Scheduler, cfg config.SchedulerConfig, svc *maintenance.Service) error {
	for _, task := range MaintenanceTasks(cfg, svc) {
		if err := s.Register(task); err != nil {
			return err
		}
	}
	return nil
}
