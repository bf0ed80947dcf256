package acmex

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/acme"
)

// BindOutcome reports how the account-binding step resolved. A CA "account
// already exists" conflict is a successful resume, not a failure.
type BindOutcome string

const (
	AccountRegistered BindOutcome = "registered"
	AccountResumed    BindOutcome = "resumed"
)

// BindAccount fetches the existing ACME account for the client's key, or
// registers a new one when the CA has never seen the key.
func BindAccount(ctx context.Context, client *acme.Client, email string) (BindOutcome, error) {
	_, err := client.GetReg(ctx, "")
	if err == nil {
		return AccountResumed, nil
	}
	if !errors.Is(err, acme.ErrNoAccount) {
		return "", fmt.Errorf("query ACME account: %w", err)
	}

	acct := &acme.Account{}
	if email != "" {
		acct.Contact = []string{"mailto:" + email}
	}

	_, err = client.Register(ctx, acct, acme.AcceptTOS)
	if errors.Is(err, acme.ErrAccountAlreadyExists) {
		return AccountResumed, nil
	}
	if err != nil {
		return "", fmt.Errorf("register ACME account: %w", err)
	}
	return AccountRegistered, nil
}
