package core

import "errors"

var (
	// ErrOrderInFlight means a pending certificate already exists for the
	// same domain and common name.
	ErrOrderInFlight = errors.New("an ACME order for this name is already in flight")

	// ErrNotRenewable means the certificate is not an issued ACME
	// certificate and cannot be renewed.
	ErrNotRenewable = errors.New("certificate is not renewable")

	// ErrRenewalNotDue means the certificate is outside its renewal window.
	ErrRenewalNotDue = errors.New("certificate is not yet due for renewal")

	// ErrCertificateProtected means the certificate is issued and in use
	// and may not be deleted.
	ErrCertificateProtected = errors.New("issued certificates cannot be deleted")

	// ErrDomainSuspended means the domain is not active and no new
	// certificates may be ordered for it.
	ErrDomainSuspended = errors.New("domain is suspended")
)
