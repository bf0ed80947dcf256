package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/ryabich/flarecloud/internal/activity"
	"github.com/ryabich/flarecloud/internal/model"
	"github.com/ryabich/flarecloud/internal/platform"
)

// RenewDueCertificatesWorkflow is a cron workflow that re-issues ACME
// certificates inside their renewal window. Each renewal gets a fresh
// pending row and a child issuance workflow; the old certificate keeps
// serving until the replacement is issued.
func RenewDueCertificatesWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)

	var due []model.Certificate
	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "ListRenewableCertificates").Get(ctx, &due)
	if err != nil {
		return err
	}
	logger.Info("certificates due for renewal", "count", len(due))

	for _, cert := range due {
		if cert.NotAfter == nil {
			logger.Warn("issued certificate has no expiry on record, skipping renewal", "certID", cert.ID)
			_ = appendLog(ctx, cert.ID, model.LogLevelWarning, "renewal skipped: no expiry on record", nil)
			continue
		}

		var pending bool
		err := workflow.ExecuteActivity(dbActivityCtx(ctx), "HasPendingCertificate", activity.HasPendingCertificateParams{
			DomainID:   cert.DomainID,
			CommonName: cert.CommonName,
		}).Get(ctx, &pending)
		if err != nil {
			logger.Error("pending check failed", "certID", cert.ID, "error", err)
			continue
		}
		if pending {
			logger.Info("renewal already in flight, skipping", "certID", cert.ID, "commonName", cert.CommonName)
			continue
		}

		if err := renewCertificate(ctx, cert); err != nil {
			logger.Error("certificate renewal failed", "certID", cert.ID, "commonName", cert.CommonName, "error", err)
			// Continue renewing other certs even if one fails.
		}
	}

	return nil
}

// renewCertificate creates the replacement row and runs issuance as a
// child workflow. The old row is only retired after the replacement is
// issued.
func renewCertificate(ctx workflow.Context, old model.Certificate) error {
	// Use SideEffect to generate a UUID deterministically for replay safety.
	var newID string
	encodedID := workflow.SideEffect(ctx, func(ctx workflow.Context) interface{} {
		return platform.NewID()
	})
	if err := encodedID.Get(&newID); err != nil {
		return err
	}

	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "CreateRenewalCertificate", activity.CreateRenewalCertParams{
		ID:              newID,
		DomainID:        old.DomainID,
		CommonName:      old.CommonName,
		AutoRenew:       old.AutoRenew,
		RenewBeforeDays: old.RenewBeforeDays,
	}).Get(ctx, nil)
	if err != nil {
		return err
	}
	_ = appendLog(ctx, newID, model.LogLevelInfo, "renewal of certificate "+old.ID, nil)

	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: "issue-cert-" + newID,
	})
	if err := workflow.ExecuteChildWorkflow(childCtx, IssueCertificateWorkflow, newID).Get(ctx, nil); err != nil {
		return err
	}

	err = workflow.ExecuteActivity(dbActivityCtx(ctx), "MarkCertificateExpired", old.ID).Get(ctx, nil)
	if err != nil {
		return err
	}
	_ = appendLog(ctx, old.ID, model.LogLevelInfo, "replaced by certificate "+newID, nil)

	return workflow.ExecuteActivity(dbActivityCtx(ctx), "StampLastRenewed", newID).Get(ctx, nil)
}
