package model

import "time"

// DomainStatus is the lifecycle state of a domain (owning zone).
type DomainStatus string

const (
	DomainStatusActive    DomainStatus = "active"
	DomainStatusSuspended DomainStatus = "suspended"
)

// Domain is the zone that owns certificates. The rest of the zone surface
// (DNS records, origins, WAF rules) lives in other services; the certificate
// subsystem only needs the id and name.
type Domain struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Status    DomainStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
