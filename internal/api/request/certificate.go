package request

// IssueCertificate is the payload for ordering a new ACME certificate.
type IssueCertificate struct {
	CommonName string `json:"common_name" validate:"required,fqdn"`
}

// RenewCertificate is the payload for a manual renewal. Force renews even
// when the certificate is outside its renewal window.
type RenewCertificate struct {
	Force bool `json:"force"`
}
