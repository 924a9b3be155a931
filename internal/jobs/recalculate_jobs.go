package jobs

import (
	"context"

	"temple-services-backend/internal/authz"
)

// RecalculateSummary counts what a reconciliation pass touched.
type RecalculateSummary struct {
	Temples  int
	Services int
	Drifted  int
	Failed   int
}

// RecalculateAllParticipants rebuilds the participant counters of every
// service from its registrations.
func (jr *JobRunner) RecalculateAllParticipants() {
	jr.runWithRecovery("RecalculateAllParticipants", func() {
		summary, err := jr.RecalculateAll(context.Background())
		if err != nil {
			jr.log().Error("Failed to recalculate participants", "error", err)
			return
		}
		jr.log().Info("Recalculated participants",
			"temples", summary.Temples,
			"services", summary.Services,
			"drifted", summary.Drifted,
			"failed", summary.Failed)
	})
}

// RecalculateAll walks every temple and service. A failure on one service is
// logged and counted. Listing failures abort the pass.
func (jr *JobRunner) RecalculateAll(ctx context.Context) (RecalculateSummary, error) {
	var summary RecalculateSummary

	temples, err := jr.temples.List(ctx)
	if err != nil {
		return summary, err
	}
	for _, temple := range temples {
		summary.Temples++
		services, err := jr.services.List(ctx, temple.ID, "", 0)
		if err != nil {
			return summary, err
		}
		for _, svc := range services {
			summary.Services++
			result, err := jr.registrations.RecalculateServiceParticipants(ctx, authz.System(), svc.ID, temple.ID)
			if err != nil {
				summary.Failed++
				jr.log().Error("Failed to recalculate service", "temple_id", temple.ID, "service_id", svc.ID, "error", err)
				continue
			}
			// The registration service logs the drift details.
			if result.Drifted() {
				summary.Drifted++
			}
		}
	}
	return summary, nil
}
