package jobs

import (
	"log/slog"

	"temple-services-backend/internal/config"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
	"temple-services-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	temples       repository.TempleRepository
	services      repository.ServiceRepository
	registrations service.RegistrationService
	config        *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store *repository.Store, registrations service.RegistrationService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		temples:       store.Temples,
		services:      store.Services,
		registrations: registrations,
		config:        cfg,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

func (jr *JobRunner) log() *slog.Logger {
	return logger.WithComponent("jobs")
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			jr.log().Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	jr.log().Info("Starting job", "job", jobName)
	jobFunc()
	jr.log().Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.RecalculateAllParticipants()
}
