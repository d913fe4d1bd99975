package cron

import (
	"context"
	"fmt"

	"github.com/loadhub-io/loadhub-backend/internal/payouts"
	"github.com/loadhub-io/loadhub-backend/pkg/logger"
)

// payoutRunner is the slice of the payouts service this job depends on.
type payoutRunner interface {
	Run(ctx context.Context, force bool) (*payouts.RunResult, error)
}

// PayoutJobParams configure the weekly driver payout job.
type PayoutJobParams struct {
	Logger  *logger.Logger
	Payouts payoutRunner
	// Force runs the payout sweep on every tick instead of only on the
	// Friday processing day. Intended for staging environments.
	Force bool
}

// NewPayoutJob builds the job that settles delivered orders into driver payouts.
func NewPayoutJob(params PayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
	}
	return &payoutJob{
		logg:    params.Logger,
		payouts: params.Payouts,
		force:   params.Force,
	}, nil
}

type payoutJob struct {
	logg    *logger.Logger
	payouts payoutRunner
	force   bool
}

func (j *payoutJob) Name() string { return "driver-payouts" }

func (j *payoutJob) Run(ctx context.Context) error {
	result, err := j.payouts.Run(ctx, j.force)
	if err != nil {
		return fmt.Errorf("driver payouts: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"period_start":      result.Period.Start,
		"period_end":        result.Period.End,
		"completed":         result.Completed,
		"failed":            result.Failed,
		"skipped":           result.Skipped,
		"already_processed": result.AlreadyProcessed,
	})
	if result.Failed > 0 {
		j.logg.Warn(logCtx, "payout sweep finished with failures")
		return nil
	}
	j.logg.Info(logCtx, "payout sweep complete")
	return nil
}
