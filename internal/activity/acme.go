package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/acme"

	"github.com/ryabich/flarecloud/internal/acmex"
	"github.com/ryabich/flarecloud/internal/challenge"
)

const acmeUserAgent = "flarecloud/1.0"

// ACME handles the protocol steps of HTTP-01 certificate issuance. Every
// activity builds its client from the persistent account key, so a worker
// restart mid-order resumes against the same ACME account.
type ACME struct {
	email          string
	directoryURL   string
	accountKeyPath string
	bridge         challenge.Bridge
}

// NewACME creates a new ACME activity struct.
func NewACME(email, directoryURL, accountKeyPath string, bridge challenge.Bridge) *ACME {
	return &ACME{
		email:          email,
		directoryURL:   directoryURL,
		accountKeyPath: accountKeyPath,
		bridge:         bridge,
	}
}

func (a *ACME) client() (*acme.Client, error) {
	key, err := acmex.LoadOrCreateAccountKey(a.accountKeyPath)
	if err != nil {
		return nil, err
	}
	return &acme.Client{
		Key:          key,
		DirectoryURL: a.directoryURL,
		UserAgent:    acmeUserAgent,
	}, nil
}

// BindAccount makes sure the account key is bound to an ACME account,
// registering one on first use. Returns whether the account was newly
// registered or resumed.
func (a *ACME) BindAccount(ctx context.Context) (acmex.BindOutcome, error) {
	client, err := a.client()
	if err != nil {
		return "", err
	}
	return acmex.BindAccount(ctx, client, a.email)
}

// CreateOrderParams holds parameters for submitting a new order.
type CreateOrderParams struct {
	CommonName string
}

// CreateOrderResult carries the order and authorization URLs the rest of
// the workflow operates on.
type CreateOrderResult struct {
	OrderURL  string
	AuthzURLs []string
}

// CreateOrder submits a new order for a single identifier.
func (a *ACME) CreateOrder(ctx context.Context, params CreateOrderParams) (*CreateOrderResult, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}

	order, err := client.AuthorizeOrder(ctx, acme.DomainIDs(params.CommonName))
	if err != nil {
		return nil, fmt.Errorf("authorize order: %w", err)
	}

	return &CreateOrderResult{
		OrderURL:  order.URI,
		AuthzURLs: order.AuthzURLs,
	}, nil
}

// PrepareChallengeParams holds parameters for PrepareChallenge.
type PrepareChallengeParams struct {
	AuthzURL string
}

// PrepareChallengeResult holds the HTTP-01 challenge details.
type PrepareChallengeResult struct {
	ChallengeURL string
	Token        string
	KeyAuth      string
}

// PrepareChallenge fetches the authorization and computes the HTTP-01 key
// authorization. Fails when the CA offers no HTTP-01 challenge.
func (a *ACME) PrepareChallenge(ctx context.Context, params PrepareChallengeParams) (*PrepareChallengeResult, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}

	authz, err := client.GetAuthorization(ctx, params.AuthzURL)
	if err != nil {
		return nil, fmt.Errorf("get authorization: %w", err)
	}

	var ch *acme.Challenge
	for _, c := range authz.Challenges {
		if c.Type == "http-01" {
			ch = c
			break
		}
	}
	if ch == nil {
		return nil, errors.New("no HTTP-01 challenge offered for authorization")
	}

	keyAuth, err := client.HTTP01ChallengeResponse(ch.Token)
	if err != nil {
		return nil, fmt.Errorf("compute key authorization: %w", err)
	}

	return &PrepareChallengeResult{
		ChallengeURL: ch.URI,
		Token:        ch.Token,
		KeyAuth:      keyAuth,
	}, nil
}

// PublishChallengeParams holds parameters for PublishChallenge.
type PublishChallengeParams struct {
	Token   string
	KeyAuth string
}

// PublishChallenge makes the key authorization resolvable by the public
// challenge endpoint. Runs as its own step so a broken bridge fails the
// order before the CA is told to validate.
func (a *ACME) PublishChallenge(ctx context.Context, params PublishChallengeParams) error {
	if err := a.bridge.Publish(ctx, params.Token, params.KeyAuth, challenge.DefaultTTL); err != nil {
		return err
	}
	return nil
}

// AcceptChallengeParams holds parameters for AcceptChallenge.
type AcceptChallengeParams struct {
	ChallengeURL string
}

// AcceptChallenge tells the CA the challenge response is in place.
func (a *ACME) AcceptChallenge(ctx context.Context, params AcceptChallengeParams) error {
	client, err := a.client()
	if err != nil {
		return err
	}

	if _, err := client.Accept(ctx, &acme.Challenge{URI: params.ChallengeURL}); err != nil {
		return fmt.Errorf("accept challenge: %w", err)
	}
	return nil
}

// AwaitAuthorizationParams holds parameters for AwaitAuthorization.
type AwaitAuthorizationParams struct {
	AuthzURL string
}

// AwaitAuthorizationResult reports how validation ended. Invalid and
// timed-out are distinct outcomes so the audit log can say which one
// happened.
type AwaitAuthorizationResult struct {
	Valid    bool
	TimedOut bool
	Detail   string
}

// AwaitAuthorization polls the authorization until the CA reports a
// terminal state or the polling budget runs out.
func (a *ACME) AwaitAuthorization(ctx context.Context, params AwaitAuthorizationParams) (*AwaitAuthorizationResult, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}

	_, err = acmex.PollAuthorization(ctx, client.GetAuthorization, params.AuthzURL,
		acmex.DefaultPollAttempts, acmex.DefaultPollInterval, time.Sleep)

	var invalid *acmex.InvalidAuthorizationError
	switch {
	case err == nil:
		return &AwaitAuthorizationResult{Valid: true}, nil
	case errors.As(err, &invalid):
		return &AwaitAuthorizationResult{Detail: invalid.Detail}, nil
	case errors.Is(err, acmex.ErrPollTimeout):
		detail := err.Error() + "; check DNS and HTTP reachability of the domain"
		return &AwaitAuthorizationResult{TimedOut: true, Detail: detail}, nil
	default:
		return nil, err
	}
}

// FinalizeOrderParams holds parameters for FinalizeOrder.
type FinalizeOrderParams struct {
	OrderURL   string
	CommonName string
}

// FinalizeOrderResult holds the issued certificate material and metadata.
type FinalizeOrderResult struct {
	CertPEM   string
	KeyPEM    string
	ChainPEM  string
	NotBefore time.Time
	NotAfter  time.Time
	Issuer    string
	Subject   string
}

// FinalizeOrder waits for the order to become ready, generates the
// certificate key, submits the CSR, and downloads the issued chain.
func (a *ACME) FinalizeOrder(ctx context.Context, params FinalizeOrderParams) (*FinalizeOrderResult, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}

	order, err := client.WaitOrder(ctx, params.OrderURL)
	if err != nil {
		return nil, fmt.Errorf("wait order: %w", err)
	}

	certKey, err := acmex.NewCertificateKey()
	if err != nil {
		return nil, err
	}

	csr, err := acmex.BuildCSR(certKey, params.CommonName)
	if err != nil {
		return nil, err
	}

	chain, _, err := client.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return nil, fmt.Errorf("create order cert: %w", err)
	}
	if len(chain) == 0 {
		return nil, errors.New("CA returned an empty certificate chain")
	}

	meta, err := acmex.ParseLeaf(chain[0])
	if err != nil {
		return nil, err
	}

	certPEM, chainPEM := acmex.EncodeChainPEM(chain)

	return &FinalizeOrderResult{
		CertPEM:   certPEM,
		KeyPEM:    acmex.EncodeKeyPEM(certKey),
		ChainPEM:  chainPEM,
		NotBefore: meta.NotBefore,
		NotAfter:  meta.NotAfter,
		Issuer:    meta.Issuer,
		Subject:   meta.Subject,
	}, nil
}

// DiscardChallengeParams holds parameters for DiscardChallenge.
type DiscardChallengeParams struct {
	Token string
}

// DiscardChallenge removes a published key authorization once the order is
// settled either way.
func (a *ACME) DiscardChallenge(ctx context.Context, params DiscardChallengeParams) error {
	return a.bridge.Discard(ctx, params.Token)
}
