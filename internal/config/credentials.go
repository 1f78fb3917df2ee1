package config

import "fmt"

// Credentials identify the account at the provider. They are resolved once at
// startup and never modified afterwards.
type Credentials struct {
	KeyID     string
	SecretKey string
	BaseURL   string
}

// MissingCredentialError reports a required credential that no configuration
// source supplied. It is fatal: no session can be opened without it.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("environment variable %s not set", e.Name)
}

// Resolve validates the configured credentials and fills in the default
// endpoint.
func (a Alpaca) Resolve() (Credentials, error) {
	if a.APIKey == "" {
		return Credentials{}, &MissingCredentialError{Name: EnvKeyID}
	}
	if a.APISecret == "" {
		return Credentials{}, &MissingCredentialError{Name: EnvSecretKey}
	}

	baseURL := a.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return Credentials{
		KeyID:     a.APIKey,
		SecretKey: a.APISecret,
		BaseURL:   baseURL,
	}, nil
}

// String hides the secret so credentials can be logged safely.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{KeyID: %s, BaseURL: %s}", c.KeyID, c.BaseURL)
}
