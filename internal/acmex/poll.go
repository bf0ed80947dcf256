package acmex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/acme"
)

// Validation polling bounds. The loop in PollAuthorization is the only
// deliberate wait in an order's lifetime.
const (
	DefaultPollAttempts = 10
	DefaultPollInterval = 2 * time.Second
)

// ErrPollTimeout means the authorization never reached a terminal state
// within the attempt budget. Distinct from a CA-reported invalid
// authorization: the usual cause is the domain not resolving or not being
// reachable from the CA.
var ErrPollTimeout = errors.New("authorization did not reach a terminal state within the polling budget")

// InvalidAuthorizationError carries the CA's structured error detail for an
// authorization that ended invalid.
type InvalidAuthorizationError struct {
	Detail string
}

func (e *InvalidAuthorizationError) Error() string {
	if e.Detail == "" {
		return "authorization is invalid"
	}
	return "authorization is invalid: " + e.Detail
}

// AuthorizationFetcher fetches the current state of an authorization
// resource. *acme.Client's GetAuthorization satisfies it.
type AuthorizationFetcher func(ctx context.Context, url string) (*acme.Authorization, error)

// PollAuthorization polls an authorization at a fixed interval until it
// reaches a terminal state or the attempt budget is exhausted. sleep is
// injectable so tests can count attempts without waiting.
func PollAuthorization(ctx context.Context, fetch AuthorizationFetcher, authzURL string, attempts int, interval time.Duration, sleep func(time.Duration)) (*acme.Authorization, error) {
	for i := 0; i < attempts; i++ {
		sleep(interval)

		authz, err := fetch(ctx, authzURL)
		if err != nil {
			return nil, fmt.Errorf("poll authorization: %w", err)
		}

		switch authz.Status {
		case acme.StatusValid:
			return authz, nil
		case acme.StatusInvalid:
			return nil, &InvalidAuthorizationError{Detail: challengeErrorDetail(authz)}
		}
	}
	return nil, ErrPollTimeout
}

func challengeErrorDetail(authz *acme.Authorization) string {
	var details []string
	for _, ch := range authz.Challenges {
		if ch.Error != nil {
			details = append(details, ch.Error.Error())
		}
	}
	return strings.Join(details, "; ")
}
