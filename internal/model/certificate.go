package model

import "time"

// CertType distinguishes ACME-issued certificates from user-uploaded ones.
type CertType string

const (
	CertTypeACME   CertType = "acme"
	CertTypeManual CertType = "manual"
)

// CertStatus is the lifecycle state of a certificate row. Transitions are
// pending -> issued|failed; issued -> expired|revoked. A renewal never
// reuses a row, it creates a new pending one.
type CertStatus string

const (
	CertStatusPending CertStatus = "pending"
	CertStatusIssued  CertStatus = "issued"
	CertStatusFailed  CertStatus = "failed"
	CertStatusExpired CertStatus = "expired"
	CertStatusRevoked CertStatus = "revoked"
)

// DefaultRenewBeforeDays is the renewal window applied to new ACME certificates.
const DefaultRenewBeforeDays = 30

type Certificate struct {
	ID       string     `json:"id" db:"id"`
	DomainID string     `json:"domain_id" db:"domain_id"`
	Type     CertType   `json:"type" db:"type"`
	Status   CertStatus `json:"status" db:"status"`

	CommonName string  `json:"common_name" db:"common_name"`
	SAN        *string `json:"san,omitempty" db:"san"`
	Issuer     *string `json:"issuer,omitempty" db:"issuer"`
	Subject    *string `json:"subject,omitempty" db:"subject"`

	NotBefore *time.Time `json:"not_before,omitempty" db:"not_before"`
	NotAfter  *time.Time `json:"not_after,omitempty" db:"not_after"`

	CertPEM  string `json:"cert_pem,omitempty" db:"cert_pem"`
	KeyPEM   string `json:"key_pem,omitempty" db:"key_pem"`
	ChainPEM string `json:"chain_pem,omitempty" db:"chain_pem"`

	ACMEOrderURL *string `json:"acme_order_url,omitempty" db:"acme_order_url"`

	AutoRenew       bool       `json:"auto_renew" db:"auto_renew"`
	RenewBeforeDays int        `json:"renew_before_days" db:"renew_before_days"`
	LastRenewedAt   *time.Time `json:"last_renewed_at,omitempty" db:"last_renewed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LogLevel classifies certificate audit log entries.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
	LogLevelSuccess LogLevel = "success"
)

// CertificateLog is one append-only audit entry for a certificate order.
// Entries are never updated; reading them in created_at order reconstructs
// the issuance timeline.
type CertificateLog struct {
	ID            int64     `json:"id" db:"id"`
	CertificateID string    `json:"certificate_id" db:"certificate_id"`
	Level         LogLevel  `json:"level" db:"level"`
	Message       string    `json:"message" db:"message"`
	Details       *string   `json:"details,omitempty" db:"details"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
