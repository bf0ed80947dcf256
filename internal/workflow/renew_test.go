package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/ryabich/flarecloud/internal/activity"
	"github.com/ryabich/flarecloud/internal/model"
)

type RenewDueCertificatesWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *RenewDueCertificatesWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
	s.env.RegisterWorkflow(IssueCertificateWorkflow)
}

func (s *RenewDueCertificatesWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func issuedCert(id string, notAfter *time.Time) model.Certificate {
	return model.Certificate{
		ID:              id,
		DomainID:        "test-domain-1",
		Type:            model.CertTypeACME,
		Status:          model.CertStatusIssued,
		CommonName:      "app.example.com",
		AutoRenew:       true,
		RenewBeforeDays: 45,
		NotAfter:        notAfter,
	}
}

func (s *RenewDueCertificatesWorkflowTestSuite) TestNothingDue() {
	s.env.OnActivity("ListRenewableCertificates", mock.Anything).Return([]model.Certificate{}, nil)

	s.env.ExecuteWorkflow(RenewDueCertificatesWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RenewDueCertificatesWorkflowTestSuite) TestRenewsOneCertificate() {
	soon := time.Now().Add(10 * 24 * time.Hour).UTC()
	old := issuedCert("test-cert-old", &soon)

	s.env.OnActivity("ListRenewableCertificates", mock.Anything).Return([]model.Certificate{old}, nil)
	s.env.OnActivity("HasPendingCertificate", mock.Anything, activity.HasPendingCertificateParams{
		DomainID: "test-domain-1", CommonName: "app.example.com",
	}).Return(false, nil)

	var newID string
	s.env.OnActivity("CreateRenewalCertificate", mock.Anything, mock.MatchedBy(func(params activity.CreateRenewalCertParams) bool {
		newID = params.ID
		return params.DomainID == "test-domain-1" && params.CommonName == "app.example.com" && params.ID != "" &&
			params.AutoRenew && params.RenewBeforeDays == 45
	})).Return(nil)
	s.env.OnActivity("AppendCertificateLog", mock.Anything, mock.Anything).Return(nil)
	s.env.OnWorkflow(IssueCertificateWorkflow, mock.Anything, mock.AnythingOfType("string")).Return(nil)
	s.env.OnActivity("MarkCertificateExpired", mock.Anything, "test-cert-old").Return(nil)
	s.env.OnActivity("StampLastRenewed", mock.Anything, mock.MatchedBy(func(id string) bool {
		return id == newID
	})).Return(nil)

	s.env.ExecuteWorkflow(RenewDueCertificatesWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RenewDueCertificatesWorkflowTestSuite) TestSkipsCertWithPendingRenewal() {
	soon := time.Now().Add(5 * 24 * time.Hour).UTC()
	old := issuedCert("test-cert-old", &soon)

	s.env.OnActivity("ListRenewableCertificates", mock.Anything).Return([]model.Certificate{old}, nil)
	s.env.OnActivity("HasPendingCertificate", mock.Anything, mock.Anything).Return(true, nil)

	s.env.ExecuteWorkflow(RenewDueCertificatesWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RenewDueCertificatesWorkflowTestSuite) TestSkipsCertWithoutExpiry() {
	old := issuedCert("test-cert-old", nil)

	s.env.OnActivity("ListRenewableCertificates", mock.Anything).Return([]model.Certificate{old}, nil)
	s.env.OnActivity("AppendCertificateLog", mock.Anything, mock.MatchedBy(func(params activity.AppendCertificateLogParams) bool {
		return params.CertificateID == "test-cert-old" && params.Level == model.LogLevelWarning
	})).Return(nil)

	s.env.ExecuteWorkflow(RenewDueCertificatesWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *RenewDueCertificatesWorkflowTestSuite) TestChildFailureDoesNotStopTheRun() {
	soon := time.Now().Add(5 * 24 * time.Hour).UTC()
	first := issuedCert("test-cert-a", &soon)
	second := issuedCert("test-cert-b", &soon)
	second.CommonName = "other.example.com"

	s.env.OnActivity("ListRenewableCertificates", mock.Anything).Return([]model.Certificate{first, second}, nil)
	s.env.OnActivity("HasPendingCertificate", mock.Anything, mock.Anything).Return(false, nil)
	s.env.OnActivity("CreateRenewalCertificate", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("AppendCertificateLog", mock.Anything, mock.Anything).Return(nil)
	s.env.OnWorkflow(IssueCertificateWorkflow, mock.Anything, mock.AnythingOfType("string")).
		Return(fmt.Errorf("validation failed")).Once()
	s.env.OnWorkflow(IssueCertificateWorkflow, mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()
	s.env.OnActivity("MarkCertificateExpired", mock.Anything, "test-cert-b").Return(nil)
	s.env.OnActivity("StampLastRenewed", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	s.env.ExecuteWorkflow(RenewDueCertificatesWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError(), "one failed renewal must not fail the cron run")
}

func TestRenewDueCertificatesWorkflow(t *testing.T) {
	suite.Run(t, new(RenewDueCertificatesWorkflowTestSuite))
}
