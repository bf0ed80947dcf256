package core

import (
	temporalclient "go.temporal.io/sdk/client"
)

// TaskQueue is the Temporal task queue shared by the API and the
// certificate worker.
const TaskQueue = "flarecloud-certs"

type Services struct {
	Domain      *DomainService
	Certificate *CertificateService
}

func NewServices(db DB, tc temporalclient.Client) *Services {
	return &Services{
		Domain:      NewDomainService(db),
		Certificate: NewCertificateService(db, tc),
	}
}
