// Package challenge hands HTTP-01 key authorizations from the certificate
// worker to the edge that answers /.well-known/acme-challenge requests.
package challenge

import (
	"context"
	"errors"
	"time"
)

// keyPrefix namespaces challenge tokens in the shared store.
const keyPrefix = "acme:challenge:"

// DefaultTTL bounds how long a published key authorization stays
// resolvable. An order that has not validated within an hour is dead.
const DefaultTTL = time.Hour

// ErrNotFound is returned by Resolve for tokens that were never published
// or have already expired.
var ErrNotFound = errors.New("challenge token not found")

// Bridge stores HTTP-01 key authorizations keyed by token. Publish and
// Discard are called by the issuance worker; Resolve by the public
// challenge endpoint.
type Bridge interface {
	Publish(ctx context.Context, token, keyAuth string, ttl time.Duration) error
	Resolve(ctx context.Context, token string) (string, error)
	Discard(ctx context.Context, token string) error
}
