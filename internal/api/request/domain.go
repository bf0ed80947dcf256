package request

// CreateDomain is the payload for onboarding a domain.
type CreateDomain struct {
	Name string `json:"name" validate:"required,fqdn"`
}
