package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/ryabich/flarecloud/internal/model"
	"github.com/ryabich/flarecloud/internal/platform"
)

const uniqueViolationCode = "23505"

type CertificateService struct {
	db DB
	tc temporalclient.Client
}

func NewCertificateService(db DB, tc temporalclient.Client) *CertificateService {
	return &CertificateService{db: db, tc: tc}
}

const certificateColumns = `id, domain_id, type, status, common_name, san, issuer, subject,
	 not_before, not_after, cert_pem, key_pem, chain_pem, acme_order_url,
	 auto_renew, renew_before_days, last_renewed_at, created_at, updated_at`

func scanCertificate(row interface{ Scan(dest ...any) error }) (*model.Certificate, error) {
	var c model.Certificate
	err := row.Scan(&c.ID, &c.DomainID, &c.Type, &c.Status, &c.CommonName, &c.SAN, &c.Issuer, &c.Subject,
		&c.NotBefore, &c.NotAfter, &c.CertPEM, &c.KeyPEM, &c.ChainPEM, &c.ACMEOrderURL,
		&c.AutoRenew, &c.RenewBeforeDays, &c.LastRenewedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Issue creates a pending ACME certificate for the domain and starts the
// issuance workflow. A pending order for the same name rejects the request
// with ErrOrderInFlight; the partial unique index closes the race two
// concurrent requests would otherwise win together.
func (s *CertificateService) Issue(ctx context.Context, domainID, commonName string) (*model.Certificate, error) {
	var domainStatus model.DomainStatus
	err := s.db.QueryRow(ctx,
		`SELECT status FROM domains WHERE id = $1`, domainID,
	).Scan(&domainStatus)
	if err != nil {
		return nil, fmt.Errorf("get domain %s: %w", domainID, err)
	}
	if domainStatus != model.DomainStatusActive {
		return nil, ErrDomainSuspended
	}

	var pending bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM certificates
		   WHERE domain_id = $1 AND common_name = $2 AND status = $3
		 )`,
		domainID, commonName, model.CertStatusPending,
	).Scan(&pending)
	if err != nil {
		return nil, fmt.Errorf("check pending certificate: %w", err)
	}
	if pending {
		return nil, ErrOrderInFlight
	}

	now := time.Now().UTC()
	cert := &model.Certificate{
		ID:              platform.NewID(),
		DomainID:        domainID,
		Type:            model.CertTypeACME,
		Status:          model.CertStatusPending,
		CommonName:      commonName,
		AutoRenew:       true,
		RenewBeforeDays: model.DefaultRenewBeforeDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO certificates (id, domain_id, type, status, common_name, auto_renew, renew_before_days, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cert.ID, cert.DomainID, cert.Type, cert.Status, cert.CommonName,
		cert.AutoRenew, cert.RenewBeforeDays, cert.CreatedAt, cert.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrOrderInFlight
		}
		return nil, fmt.Errorf("insert certificate: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO certificate_logs (certificate_id, level, message)
		 VALUES ($1, $2, $3)`,
		cert.ID, model.LogLevelInfo, "certificate requested for "+commonName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert certificate log: %w", err)
	}

	_, err = s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        "issue-cert-" + cert.ID,
		TaskQueue: TaskQueue,
	}, "IssueCertificateWorkflow", cert.ID)
	if err != nil {
		return nil, fmt.Errorf("start IssueCertificateWorkflow: %w", err)
	}

	return cert, nil
}

// Renew creates a pending replacement for an issued ACME certificate and
// starts issuance. Unless force is set, the certificate must be inside its
// renewal window. The old certificate keeps serving until the cron renewal
// pass retires it or it expires.
func (s *CertificateService) Renew(ctx context.Context, domainID, certID string, force bool) (*model.Certificate, error) {
	old, err := s.GetByID(ctx, domainID, certID)
	if err != nil {
		return nil, err
	}
	if old.Type != model.CertTypeACME || old.Status != model.CertStatusIssued {
		return nil, ErrNotRenewable
	}
	if !force {
		if old.NotAfter == nil {
			return nil, ErrRenewalNotDue
		}
		window := time.Duration(old.RenewBeforeDays) * 24 * time.Hour
		if time.Now().UTC().Add(window).Before(*old.NotAfter) {
			return nil, ErrRenewalNotDue
		}
	}

	var pending bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM certificates
		   WHERE domain_id = $1 AND common_name = $2 AND status = $3
		 )`,
		old.DomainID, old.CommonName, model.CertStatusPending,
	).Scan(&pending)
	if err != nil {
		return nil, fmt.Errorf("check pending certificate: %w", err)
	}
	if pending {
		return nil, ErrOrderInFlight
	}

	now := time.Now().UTC()
	replacement := &model.Certificate{
		ID:              platform.NewID(),
		DomainID:        old.DomainID,
		Type:            model.CertTypeACME,
		Status:          model.CertStatusPending,
		CommonName:      old.CommonName,
		AutoRenew:       old.AutoRenew,
		RenewBeforeDays: old.RenewBeforeDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO certificates (id, domain_id, type, status, common_name, auto_renew, renew_before_days, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		replacement.ID, replacement.DomainID, replacement.Type, replacement.Status, replacement.CommonName,
		replacement.AutoRenew, replacement.RenewBeforeDays, replacement.CreatedAt, replacement.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrOrderInFlight
		}
		return nil, fmt.Errorf("insert certificate: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO certificate_logs (certificate_id, level, message)
		 VALUES ($1, $2, $3)`,
		replacement.ID, model.LogLevelInfo, "manual renewal of certificate "+old.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert certificate log: %w", err)
	}

	_, err = s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        "issue-cert-" + replacement.ID,
		TaskQueue: TaskQueue,
	}, "IssueCertificateWorkflow", replacement.ID)
	if err != nil {
		return nil, fmt.Errorf("start IssueCertificateWorkflow: %w", err)
	}

	return replacement, nil
}

// GetByID returns a certificate scoped to its domain, so one tenant's
// certificate IDs are useless under another tenant's domain.
func (s *CertificateService) GetByID(ctx context.Context, domainID, certID string) (*model.Certificate, error) {
	cert, err := scanCertificate(s.db.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE id = $1 AND domain_id = $2`,
		certID, domainID,
	))
	if err != nil {
		return nil, fmt.Errorf("get certificate %s: %w", certID, err)
	}
	return cert, nil
}

func (s *CertificateService) ListByDomain(ctx context.Context, domainID string, limit int, cursor string) ([]model.Certificate, bool, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE domain_id = $1`
	args := []any{domainID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list certificates for domain %s: %w", domainID, err)
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, *cert)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate certificates: %w", err)
	}

	hasMore := len(certs) > limit
	if hasMore {
		certs = certs[:limit]
	}
	return certs, hasMore, nil
}

// Logs returns the certificate's audit log in chronological order.
func (s *CertificateService) Logs(ctx context.Context, domainID, certID string) ([]model.CertificateLog, error) {
	// Scope check first so a wrong domain yields not-found, not an empty log.
	if _, err := s.GetByID(ctx, domainID, certID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, certificate_id, level, message, details, created_at
		 FROM certificate_logs WHERE certificate_id = $1
		 ORDER BY created_at, id`, certID,
	)
	if err != nil {
		return nil, fmt.Errorf("list logs for certificate %s: %w", certID, err)
	}
	defer rows.Close()

	var logs []model.CertificateLog
	for rows.Next() {
		var l model.CertificateLog
		if err := rows.Scan(&l.ID, &l.CertificateID, &l.Level, &l.Message, &l.Details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan certificate log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificate logs: %w", err)
	}
	return logs, nil
}

// Delete removes a failed, expired, or revoked certificate and its logs.
// Issued certificates are protected; pending ones belong to a running
// workflow and are protected too.
func (s *CertificateService) Delete(ctx context.Context, domainID, certID string) error {
	cert, err := s.GetByID(ctx, domainID, certID)
	if err != nil {
		return err
	}
	if cert.Status == model.CertStatusIssued || cert.Status == model.CertStatusPending {
		return ErrCertificateProtected
	}

	_, err = s.db.Exec(ctx, `DELETE FROM certificates WHERE id = $1`, certID)
	if err != nil {
		return fmt.Errorf("delete certificate %s: %w", certID, err)
	}
	return nil
}
