package remote

import (
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
)

// Authenticator provides authentication for OCI registry operations.
type Authenticator interface {
	// Authenticate returns credentials for the given registry.
	Authenticate(registry string) (authn.Authenticator, error)
}

// KeychainAuthenticator resolves credentials like Docker does.
type KeychainAuthenticator struct {
	keychain authn.Keychain
}

// NewDefaultAuthenticator uses authn.DefaultKeychain.
func NewDefaultAuthenticator() *KeychainAuthenticator {
	return &KeychainAuthenticator{keychain: authn.DefaultKeychain}
}

func (a *KeychainAuthenticator) Authenticate(registry string) (authn.Authenticator, error) {
	reg, err := name.NewRegistry(registry)
	if err != nil {
		return nil, err
	}
	return a.keychain.Resolve(reg)
}

// StaticAuthenticator returns fixed basic credentials, or anonymous access
// when username is empty.
type StaticAuthenticator struct {
	Username string
	Password string
}

func (a StaticAuthenticator) Authenticate(string) (authn.Authenticator, error) {
	if a.Username == "" {
		return authn.Anonymous, nil
	}
	return &authn.Basic{Username: a.Username, Password: a.Password}, nil
}
