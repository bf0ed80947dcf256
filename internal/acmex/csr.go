package acmex

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"time"
)

const certKeyBits = 2048

// NewCertificateKey generates the per-order RSA key the certificate is
// issued for, distinct from the account key.
func NewCertificateKey() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, certKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate certificate key: %w", err)
	}
	return key, nil
}

// BuildCSR creates a PKCS#10 request whose subject common name and single
// SAN both equal commonName, returned as DER.
func BuildCSR(key *rsa.PrivateKey, commonName string) ([]byte, error) {
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: commonName},
		DNSNames: []string{commonName},
	}, key)
	if err != nil {
		return nil, fmt.Errorf("create CSR: %w", err)
	}
	return der, nil
}

// EncodeKeyPEM encodes an RSA private key as a PKCS#1 PEM block.
func EncodeKeyPEM(key *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

// EncodeChainPEM splits an issued DER chain into the leaf PEM and the rest
// of the chain PEM.
func EncodeChainPEM(chain [][]byte) (leafPEM, chainPEM string) {
	var leaf, rest []byte
	for i, der := range chain {
		block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
		if i == 0 {
			leaf = block
		} else {
			rest = append(rest, block...)
		}
	}
	return string(leaf), string(rest)
}

// LeafMetadata is the parsed identity of an issued leaf certificate.
// Timestamps are normalized to UTC before they reach the store.
type LeafMetadata struct {
	NotBefore time.Time
	NotAfter  time.Time
	Issuer    string
	Subject   string
}

// ParseLeaf extracts validity and naming metadata from the first certificate
// in a DER chain.
func ParseLeaf(leafDER []byte) (*LeafMetadata, error) {
	cert, err := x509.ParseCertificate(leafDER)
	if err != nil {
		return nil, fmt.Errorf("parse issued certificate: %w", err)
	}
	return &LeafMetadata{
		NotBefore: cert.NotBefore.UTC(),
		NotAfter:  cert.NotAfter.UTC(),
		Issuer:    cert.Issuer.String(),
		Subject:   cert.Subject.String(),
	}, nil
}
