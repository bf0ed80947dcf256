package workflow

import (
	"errors"
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/ryabich/flarecloud/internal/acmex"
	"github.com/ryabich/flarecloud/internal/activity"
	"github.com/ryabich/flarecloud/internal/model"
)

// IssueCertificateWorkflow drives one ACME HTTP-01 order for an existing
// pending certificate row. Every step leaves an audit log entry, and any
// failure moves the row to failed; the row never stays pending after the
// workflow returns.
func IssueCertificateWorkflow(ctx workflow.Context, certID string) error {
	var cert model.Certificate
	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "GetCertificateByID", certID).Get(ctx, &cert)
	if err != nil {
		return err
	}

	_ = appendLog(ctx, certID, model.LogLevelInfo, "starting ACME order for "+cert.CommonName, nil)

	// Step 1: bind the account key to an ACME account.
	var outcome acmex.BindOutcome
	err = workflow.ExecuteActivity(acmeActivityCtx(ctx), "BindAccount").Get(ctx, &outcome)
	if err != nil {
		failCertificate(ctx, certID, "ACME account binding failed", err)
		return err
	}
	_ = appendLog(ctx, certID, model.LogLevelInfo, "ACME account "+string(outcome), nil)

	// Step 2: submit the order.
	var order activity.CreateOrderResult
	err = workflow.ExecuteActivity(acmeActivityCtx(ctx), "CreateOrder", activity.CreateOrderParams{
		CommonName: cert.CommonName,
	}).Get(ctx, &order)
	if err != nil {
		failCertificate(ctx, certID, "ACME order creation failed", err)
		return err
	}
	_ = appendLog(ctx, certID, model.LogLevelInfo, "ACME order created", &order.OrderURL)

	// A single-identifier order carries one authorization, but the CA is
	// free to return more. All of them must validate.
	for _, authzURL := range order.AuthzURLs {
		if err := validateAuthorization(ctx, certID, authzURL); err != nil {
			return err
		}
	}

	// Step 7: finalize and download the chain.
	var issued activity.FinalizeOrderResult
	err = workflow.ExecuteActivity(acmeActivityCtx(ctx), "FinalizeOrder", activity.FinalizeOrderParams{
		OrderURL:   order.OrderURL,
		CommonName: cert.CommonName,
	}).Get(ctx, &issued)
	if err != nil {
		failCertificate(ctx, certID, "ACME order finalization failed", err)
		return err
	}

	err = workflow.ExecuteActivity(dbActivityCtx(ctx), "StoreIssuedCertificate", activity.StoreIssuedCertParams{
		ID:           certID,
		CertPEM:      issued.CertPEM,
		KeyPEM:       issued.KeyPEM,
		ChainPEM:     issued.ChainPEM,
		NotBefore:    issued.NotBefore,
		NotAfter:     issued.NotAfter,
		Issuer:       issued.Issuer,
		Subject:      issued.Subject,
		SAN:          cert.CommonName,
		ACMEOrderURL: order.OrderURL,
	}).Get(ctx, nil)
	if err != nil {
		failCertificate(ctx, certID, "storing issued certificate failed", err)
		return err
	}

	expiry := issued.NotAfter.Format("2006-01-02")
	_ = appendLog(ctx, certID, model.LogLevelSuccess, "certificate issued, valid until "+expiry, nil)
	return nil
}

// validateAuthorization runs steps 3 through 6 for one authorization:
// prepare the HTTP-01 response, publish it, tell the CA to validate, and
// wait for the verdict. The published token is discarded whichever way
// validation ends.
func validateAuthorization(ctx workflow.Context, certID, authzURL string) error {
	// Step 3: compute the key authorization.
	var prep activity.PrepareChallengeResult
	err := workflow.ExecuteActivity(acmeActivityCtx(ctx), "PrepareChallenge", activity.PrepareChallengeParams{
		AuthzURL: authzURL,
	}).Get(ctx, &prep)
	if err != nil {
		failCertificate(ctx, certID, "preparing HTTP-01 challenge failed", err)
		return err
	}

	// Step 4: make the response resolvable before the CA starts probing.
	err = workflow.ExecuteActivity(acmeActivityCtx(ctx), "PublishChallenge", activity.PublishChallengeParams{
		Token:   prep.Token,
		KeyAuth: prep.KeyAuth,
	}).Get(ctx, nil)
	if err != nil {
		failCertificate(ctx, certID, "publishing challenge response failed", err)
		return err
	}
	_ = appendLog(ctx, certID, model.LogLevelInfo, "HTTP-01 challenge published", nil)

	discard := func() {
		_ = workflow.ExecuteActivity(acmeActivityCtx(ctx), "DiscardChallenge", activity.DiscardChallengeParams{
			Token: prep.Token,
		}).Get(ctx, nil)
	}

	// Step 5: ask the CA to validate.
	err = workflow.ExecuteActivity(acmeActivityCtx(ctx), "AcceptChallenge", activity.AcceptChallengeParams{
		ChallengeURL: prep.ChallengeURL,
	}).Get(ctx, nil)
	if err != nil {
		discard()
		failCertificate(ctx, certID, "accepting challenge failed", err)
		return err
	}

	// Step 6: poll for the verdict.
	var verdict activity.AwaitAuthorizationResult
	err = workflow.ExecuteActivity(acmeActivityCtx(ctx), "AwaitAuthorization", activity.AwaitAuthorizationParams{
		AuthzURL: authzURL,
	}).Get(ctx, &verdict)
	discard()
	if err != nil {
		failCertificate(ctx, certID, "polling authorization failed", err)
		return err
	}

	if !verdict.Valid {
		message := "domain validation rejected by CA"
		if verdict.TimedOut {
			message = "domain validation timed out"
		}
		var cause error
		if verdict.Detail != "" {
			cause = errors.New(verdict.Detail)
		}
		failCertificate(ctx, certID, message, cause)
		return fmt.Errorf("%s: %s", message, verdict.Detail)
	}

	_ = appendLog(ctx, certID, model.LogLevelInfo, "domain validation succeeded", nil)
	return nil
}
