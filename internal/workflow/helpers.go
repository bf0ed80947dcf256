package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ryabich/flarecloud/internal/activity"
	"github.com/ryabich/flarecloud/internal/model"
)

// dbActivityCtx returns a workflow context for bookkeeping activities.
// Database writes are safe to retry.
func dbActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}

// acmeActivityCtx returns a workflow context for ACME protocol steps. These
// run exactly once per order: a failed protocol step fails the order rather
// than being retried against CA rate limits.
func acmeActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
}

// appendLog writes one audit log entry. Best effort: a broken log write
// never decides an order's fate, so callers ignore the returned error.
func appendLog(ctx workflow.Context, certID string, level model.LogLevel, message string, details *string) error {
	return workflow.ExecuteActivity(dbActivityCtx(ctx), "AppendCertificateLog", activity.AppendCertificateLogParams{
		CertificateID: certID,
		Level:         level,
		Message:       message,
		Details:       details,
	}).Get(ctx, nil)
}

// failCertificate records the failure in the audit log and moves the
// certificate to the failed status.
func failCertificate(ctx workflow.Context, certID, message string, cause error) {
	var details *string
	if cause != nil {
		msg := cause.Error()
		details = &msg
	}
	_ = appendLog(ctx, certID, model.LogLevelError, message, details)
	_ = workflow.ExecuteActivity(dbActivityCtx(ctx), "SetCertificateStatus", activity.SetCertificateStatusParams{
		ID:     certID,
		Status: model.CertStatusFailed,
	}).Get(ctx, nil)
}
