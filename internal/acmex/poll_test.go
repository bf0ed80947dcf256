package acmex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/acme"
)

func noSleep(d time.Duration) {}

func TestPollAuthorization_ValidAfterPending(t *testing.T) {
	statuses := []string{acme.StatusPending, acme.StatusPending, acme.StatusValid}
	calls := 0
	fetch := func(ctx context.Context, url string) (*acme.Authorization, error) {
		authz := &acme.Authorization{Status: statuses[calls]}
		calls++
		return authz, nil
	}

	authz, err := PollAuthorization(context.Background(), fetch, "https://ca/authz/1", DefaultPollAttempts, DefaultPollInterval, noSleep)
	require.NoError(t, err)
	assert.Equal(t, acme.StatusValid, authz.Status)
	assert.Equal(t, 3, calls)
}

func TestPollAuthorization_InvalidCarriesCADetail(t *testing.T) {
	fetch := func(ctx context.Context, url string) (*acme.Authorization, error) {
		return &acme.Authorization{
			Status: acme.StatusInvalid,
			Challenges: []*acme.Challenge{
				{Type: "http-01", Error: &acme.Error{ProblemType: "urn:ietf:params:acme:error:unauthorized", Detail: "Invalid response from http://app.example.com"}},
			},
		}, nil
	}

	_, err := PollAuthorization(context.Background(), fetch, "https://ca/authz/1", DefaultPollAttempts, DefaultPollInterval, noSleep)
	require.Error(t, err)

	var invalid *InvalidAuthorizationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Detail, "Invalid response")
}

func TestPollAuthorization_TimeoutIsDistinctFromInvalid(t *testing.T) {
	calls := 0
	slept := 0
	fetch := func(ctx context.Context, url string) (*acme.Authorization, error) {
		calls++
		return &acme.Authorization{Status: acme.StatusPending}, nil
	}
	sleep := func(d time.Duration) {
		assert.Equal(t, DefaultPollInterval, d)
		slept++
	}

	_, err := PollAuthorization(context.Background(), fetch, "https://ca/authz/1", DefaultPollAttempts, DefaultPollInterval, sleep)
	require.ErrorIs(t, err, ErrPollTimeout)

	var invalid *InvalidAuthorizationError
	assert.False(t, errors.As(err, &invalid))
	assert.Equal(t, DefaultPollAttempts, calls, "must stop exactly at the attempt budget")
	assert.Equal(t, DefaultPollAttempts, slept)
}

func TestPollAuthorization_FetchErrorPropagates(t *testing.T) {
	fetch := func(ctx context.Context, url string) (*acme.Authorization, error) {
		return nil, errors.New("connection refused")
	}

	_, err := PollAuthorization(context.Background(), fetch, "https://ca/authz/1", 3, time.Second, noSleep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
