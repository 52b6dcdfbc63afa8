package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/oxfield/backend/internal/infrastructure/scheduler"
)

// BillingJobExecutor maps scheduled job types onto the billing services.
// Each run fills the job report with per-tenant success and failure counts.
type BillingJobExecutor struct {
	billing *BillingService
	credits *CreditService
	logger  *zap.Logger
}

// NewBillingJobExecutor creates a new billing job executor
func NewBillingJobExecutor(
	billingService *BillingService,
	creditService *CreditService,
	log *zap.Logger,
) *BillingJobExecutor {
	return &BillingJobExecutor{
		billing: billingService,
		credits: creditService,
		logger:  log,
	}
}

// Execute runs the job for its type and records the report
func (e *BillingJobExecutor) Execute(ctx context.Context, job *scheduler.Job) error {
	var succeeded, failed int

	switch job.JobType {
	case scheduler.JobTypeMonthlyBilling:
		succeeded, failed = e.billing.RunMonthlyBilling(ctx, job.RunAt)
	case scheduler.JobTypeOverdueSweep:
		succeeded, failed = e.billing.SweepOverdueInvoices(ctx, job.RunAt)
	case scheduler.JobTypeDelinquencySweep:
		succeeded, failed = e.billing.SweepDelinquents(ctx, job.RunAt)
	case scheduler.JobTypeCreditExpiryNotice:
		succeeded, failed = e.credits.NotifyExpiringCredits(ctx, job.RunAt)
	case scheduler.JobTypeMonthlyReport:
		succeeded, failed = e.billing.RunMonthlyReport(ctx, job.RunAt)
	default:
		return scheduler.ErrInvalidJobType
	}

	job.Report = scheduler.JobReport{Succeeded: succeeded, Failed: failed}

	e.logger.Info("Billing job executed",
		zap.String("job_type", string(job.JobType)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	return nil
}

// Ensure BillingJobExecutor implements scheduler.JobExecutor
var _ scheduler.JobExecutor = (*BillingJobExecutor)(nil)
