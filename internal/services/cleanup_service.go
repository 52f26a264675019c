package services

import (
	"context"
	"time"

	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/utils"
)

// orphanedTaskRetention is how long past its run time a scheduled task may
// linger (dispatcher outage) before the nightly cleanup drops it.
const orphanedTaskRetention = 24 * time.Hour

// CleanupService purges expired codes and orphaned queue rows. It is the
// second backstop behind the per-code sweep tasks.
type CleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type cleanupService struct {
	codeRepo repositories.CodeRepository
	taskRepo repositories.ScheduledTaskRepository
}

func NewCleanupService(codeRepo repositories.CodeRepository, taskRepo repositories.ScheduledTaskRepository) CleanupService {
	return &cleanupService{codeRepo: codeRepo, taskRepo: taskRepo}
}

func (s *cleanupService) CleanupDaily(ctx context.Context) error {
	if err := s.codeRepo.DeleteExpired(ctx); err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup expired codes")
		return err
	}
	if err := s.taskRepo.CleanupOrphaned(ctx, orphanedTaskRetention); err != nil {
		utils.Logger.WithError(err).Error("Failed to cleanup orphaned scheduled tasks")
		return err
	}

	utils.Logger.Info("Daily codes cleanup completed successfully.")
	return nil
}
