package workflow

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/ryabich/flarecloud/internal/activity"
	"github.com/ryabich/flarecloud/internal/model"
)

// StuckOrderTimeout is how long a certificate may stay pending before the
// reaper declares the order dead. A healthy HTTP-01 order settles in well
// under a minute.
const StuckOrderTimeout = 10 * time.Minute

// ReapStuckOrdersWorkflow is a cron workflow that fails pending
// certificates whose orders never finished, usually because a worker died
// mid-order. Failing them unblocks new issuance attempts for the same name.
func ReapStuckOrdersWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)

	var stuck []model.Certificate
	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "ListStuckPendingCertificates", StuckOrderTimeout).Get(ctx, &stuck)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}
	logger.Info("reaping stuck pending certificates", "count", len(stuck))

	for _, cert := range stuck {
		err := workflow.ExecuteActivity(dbActivityCtx(ctx), "SetCertificateStatus", activity.SetCertificateStatusParams{
			ID:     cert.ID,
			Status: model.CertStatusFailed,
		}).Get(ctx, nil)
		if err != nil {
			logger.Error("failed to reap stuck certificate", "certID", cert.ID, "error", err)
			continue
		}
		_ = appendLog(ctx, cert.ID, model.LogLevelError, "order abandoned: still pending after "+StuckOrderTimeout.String(), nil)
	}

	return nil
}

// SweepExpiredCertificatesWorkflow is a cron workflow that retires issued
// certificates whose expiry has passed.
func SweepExpiredCertificatesWorkflow(ctx workflow.Context) error {
	var swept int64
	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "SweepExpiredCertificates").Get(ctx, &swept)
	if err != nil {
		return err
	}
	if swept > 0 {
		workflow.GetLogger(ctx).Info("retired expired certificates", "count", swept)
	}
	return nil
}
