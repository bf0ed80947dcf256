package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ryabich/flarecloud/internal/model"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CertDB contains activities that read from and update the core database
// on behalf of certificate workflows.
type CertDB struct {
	db DB
}

// NewCertDB creates a new CertDB activity struct.
func NewCertDB(db DB) *CertDB {
	return &CertDB{db: db}
}

const certificateColumns = `id, domain_id, type, status, common_name, san, issuer, subject,
	 not_before, not_after, cert_pem, key_pem, chain_pem, acme_order_url,
	 auto_renew, renew_before_days, last_renewed_at, created_at, updated_at`

func scanCertificate(row pgx.Row) (*model.Certificate, error) {
	var c model.Certificate
	err := row.Scan(&c.ID, &c.DomainID, &c.Type, &c.Status, &c.CommonName, &c.SAN, &c.Issuer, &c.Subject,
		&c.NotBefore, &c.NotAfter, &c.CertPEM, &c.KeyPEM, &c.ChainPEM, &c.ACMEOrderURL,
		&c.AutoRenew, &c.RenewBeforeDays, &c.LastRenewedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCertificateByID retrieves a certificate by its ID.
func (a *CertDB) GetCertificateByID(ctx context.Context, id string) (*model.Certificate, error) {
	cert, err := scanCertificate(a.db.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("get certificate by id: %w", err)
	}
	return cert, nil
}

// GetDomainByID retrieves a domain by its ID.
func (a *CertDB) GetDomainByID(ctx context.Context, id string) (*model.Domain, error) {
	var d model.Domain
	err := a.db.QueryRow(ctx,
		`SELECT id, name, status, created_at, updated_at FROM domains WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get domain by id: %w", err)
	}
	return &d, nil
}

// SetCertificateStatusParams holds the parameters for SetCertificateStatus.
type SetCertificateStatusParams struct {
	ID     string
	Status model.CertStatus
}

// SetCertificateStatus moves a certificate to a new lifecycle status.
func (a *CertDB) SetCertificateStatus(ctx context.Context, params SetCertificateStatusParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE certificates SET status = $1, updated_at = now() WHERE id = $2`,
		params.Status, params.ID,
	)
	if err != nil {
		return fmt.Errorf("set certificate status: %w", err)
	}
	return nil
}

// AppendCertificateLogParams holds the parameters for AppendCertificateLog.
type AppendCertificateLogParams struct {
	CertificateID string
	Level         model.LogLevel
	Message       string
	Details       *string
}

// AppendCertificateLog appends one entry to a certificate's audit log.
// Entries are append-only; nothing ever updates or deletes them.
func (a *CertDB) AppendCertificateLog(ctx context.Context, params AppendCertificateLogParams) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO certificate_logs (certificate_id, level, message, details)
		 VALUES ($1, $2, $3, $4)`,
		params.CertificateID, params.Level, params.Message, params.Details,
	)
	if err != nil {
		return fmt.Errorf("append certificate log: %w", err)
	}
	return nil
}

// StoreIssuedCertParams holds the parameters for StoreIssuedCertificate.
type StoreIssuedCertParams struct {
	ID           string
	CertPEM      string
	KeyPEM       string
	ChainPEM     string
	NotBefore    time.Time
	NotAfter     time.Time
	Issuer       string
	Subject      string
	SAN          string
	ACMEOrderURL string
}

// StoreIssuedCertificate persists the issued certificate material and
// metadata and moves the row to the issued status in one statement, so a
// reader never sees an issued certificate without its PEM data.
func (a *CertDB) StoreIssuedCertificate(ctx context.Context, params StoreIssuedCertParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE certificates
		 SET status = $1, cert_pem = $2, key_pem = $3, chain_pem = $4,
		     not_before = $5, not_after = $6, issuer = $7, subject = $8,
		     san = $9, acme_order_url = $10, updated_at = now()
		 WHERE id = $11`,
		model.CertStatusIssued, params.CertPEM, params.KeyPEM, params.ChainPEM,
		params.NotBefore, params.NotAfter, params.Issuer, params.Subject,
		params.SAN, params.ACMEOrderURL, params.ID,
	)
	if err != nil {
		return fmt.Errorf("store issued certificate: %w", err)
	}
	return nil
}

// ListRenewableCertificates returns issued ACME certificates with
// auto-renew enabled that are inside their renewal window. Certificates
// without an expiry on record are included so the renewal pass can flag
// them instead of silently skipping them forever.
func (a *CertDB) ListRenewableCertificates(ctx context.Context) ([]model.Certificate, error) {
	rows, err := a.db.Query(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificates
		 WHERE type = $1 AND status = $2 AND auto_renew = true
		   AND (not_after IS NULL OR not_after <= now() + renew_before_days * interval '1 day')
		 ORDER BY not_after ASC NULLS FIRST`,
		model.CertTypeACME, model.CertStatusIssued,
	)
	if err != nil {
		return nil, fmt.Errorf("list renewable certificates: %w", err)
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan renewable certificate: %w", err)
		}
		certs = append(certs, *cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list renewable certificates: %w", err)
	}
	return certs, nil
}

// HasPendingCertificateParams holds the parameters for HasPendingCertificate.
type HasPendingCertificateParams struct {
	DomainID   string
	CommonName string
}

// HasPendingCertificate reports whether an order for this name is already
// in flight.
func (a *CertDB) HasPendingCertificate(ctx context.Context, params HasPendingCertificateParams) (bool, error) {
	var exists bool
	err := a.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM certificates
		   WHERE domain_id = $1 AND common_name = $2 AND status = $3
		 )`,
		params.DomainID, params.CommonName, model.CertStatusPending,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending certificate: %w", err)
	}
	return exists, nil
}

// CreateRenewalCertParams holds the parameters for CreateRenewalCertificate.
type CreateRenewalCertParams struct {
	ID              string
	DomainID        string
	CommonName      string
	AutoRenew       bool
	RenewBeforeDays int
}

// CreateRenewalCertificate inserts the pending replacement row for a
// renewal, carrying over the old row's renewal policy. The partial unique
// index on pending (domain_id, common_name) rejects concurrent duplicates.
func (a *CertDB) CreateRenewalCertificate(ctx context.Context, params CreateRenewalCertParams) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO certificates (id, domain_id, type, status, common_name, auto_renew, renew_before_days)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		params.ID, params.DomainID, model.CertTypeACME, model.CertStatusPending, params.CommonName,
		params.AutoRenew, params.RenewBeforeDays,
	)
	if err != nil {
		return fmt.Errorf("create renewal certificate: %w", err)
	}
	return nil
}

// MarkCertificateExpired retires a certificate that has been replaced or
// has passed its expiry.
func (a *CertDB) MarkCertificateExpired(ctx context.Context, id string) error {
	_, err := a.db.Exec(ctx,
		`UPDATE certificates SET status = $1, updated_at = now() WHERE id = $2`,
		model.CertStatusExpired, id,
	)
	if err != nil {
		return fmt.Errorf("mark certificate expired: %w", err)
	}
	return nil
}

// StampLastRenewed records the renewal time on the replacement certificate.
func (a *CertDB) StampLastRenewed(ctx context.Context, id string) error {
	_, err := a.db.Exec(ctx,
		`UPDATE certificates SET last_renewed_at = now(), updated_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("stamp last renewed: %w", err)
	}
	return nil
}

// ListStuckPendingCertificates returns pending certificates older than the
// given timeout, for the reaper to fail.
func (a *CertDB) ListStuckPendingCertificates(ctx context.Context, timeout time.Duration) ([]model.Certificate, error) {
	rows, err := a.db.Query(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificates
		 WHERE status = $1 AND created_at < now() - $2::interval
		 ORDER BY created_at ASC`,
		model.CertStatusPending, timeout.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list stuck pending certificates: %w", err)
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stuck certificate: %w", err)
		}
		certs = append(certs, *cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stuck pending certificates: %w", err)
	}
	return certs, nil
}

// SweepExpiredCertificates marks issued certificates whose expiry has
// passed, returning how many rows changed.
func (a *CertDB) SweepExpiredCertificates(ctx context.Context) (int64, error) {
	tag, err := a.db.Exec(ctx,
		`UPDATE certificates SET status = $1, updated_at = now()
		 WHERE status = $2 AND not_after IS NOT NULL AND not_after < now()`,
		model.CertStatusExpired, model.CertStatusIssued,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep expired certificates: %w", err)
	}
	return tag.RowsAffected(), nil
}
