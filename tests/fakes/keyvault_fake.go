// Package fakes provides in-memory stand-ins for the Azure SDK surfaces
// kvensure consumes, so reconciliation logic can be tested without a vault.
package fakes

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeVaultSecret holds the stored state of one secret in the fake vault.
type FakeVaultSecret struct {
	Value       string
	Version     string
	ContentType *string
	Tags        map[string]*string
	Attributes  *azsecrets.SecretAttributes
}

// FakeSecretClient is an in-memory implementation of the Key Vault secret
// API subset used by the reconciler. It records every write so tests can
// assert that check mode and no-op paths never touch the vault.
type FakeSecretClient struct {
	VaultURL string
	Secrets  map[string]*FakeVaultSecret

	// Errors maps secret names to errors returned by any operation on them.
	Errors map[string]error
	// GetErr / SetErr / DeleteErr force an error for one operation kind.
	GetErr    error
	SetErr    error
	DeleteErr error

	// Write recording.
	SetCalls    []string
	DeleteCalls []string

	versionCounter int
}

// NewFakeSecretClient creates an empty fake vault bound to vaultURL
// (trailing slash expected, e.g. "https://contoso.vault.azure.net/").
func NewFakeSecretClient(vaultURL string) *FakeSecretClient {
	return &FakeSecretClient{
		VaultURL: vaultURL,
		Secrets:  make(map[string]*FakeVaultSecret),
		Errors:   make(map[string]error),
	}
}

// AddSecret seeds the fake vault with a secret at a fresh version.
func (f *FakeSecretClient) AddSecret(name, value string) {
	f.versionCounter++
	f.Secrets[name] = &FakeVaultSecret{
		Value:   value,
		Version: fmt.Sprintf("%032x", f.versionCounter),
		Attributes: &azsecrets.SecretAttributes{
			Enabled: to.Ptr(true),
			Created: to.Ptr(time.Now()),
			Updated: to.Ptr(time.Now()),
		},
	}
}

func (f *FakeSecretClient) id(name, version string) *azsecrets.ID {
	id := azsecrets.ID(fmt.Sprintf("%ssecrets/%s/%s", f.VaultURL, name, version))
	return &id
}

func notFoundErr(name string) error {
	return fmt.Errorf("SecretNotFound: a secret with name/id %q was not found in this key vault. Status: 404", name)
}

// GetSecret returns the stored secret or a SecretNotFound error.
func (f *FakeSecretClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	if f.GetErr != nil {
		return azsecrets.GetSecretResponse{}, f.GetErr
	}
	if err, ok := f.Errors[name]; ok {
		return azsecrets.GetSecretResponse{}, err
	}

	secret, exists := f.Secrets[name]
	if !exists {
		return azsecrets.GetSecretResponse{}, notFoundErr(name)
	}
	if version != "" && version != secret.Version {
		return azsecrets.GetSecretResponse{}, notFoundErr(name)
	}

	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:          f.id(name, secret.Version),
			Value:       to.Ptr(secret.Value),
			ContentType: secret.ContentType,
			Tags:        secret.Tags,
			Attributes:  secret.Attributes,
		},
	}, nil
}

// SetSecret stores a new version of the secret and records the call.
func (f *FakeSecretClient) SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	f.SetCalls = append(f.SetCalls, name)

	if f.SetErr != nil {
		return azsecrets.SetSecretResponse{}, f.SetErr
	}
	if err, ok := f.Errors[name]; ok {
		return azsecrets.SetSecretResponse{}, err
	}

	f.versionCounter++
	secret := &FakeVaultSecret{
		Version:     fmt.Sprintf("%032x", f.versionCounter),
		ContentType: parameters.ContentType,
		Tags:        parameters.Tags,
		Attributes: &azsecrets.SecretAttributes{
			Enabled: to.Ptr(true),
			Created: to.Ptr(time.Now()),
			Updated: to.Ptr(time.Now()),
		},
	}
	if parameters.Value != nil {
		secret.Value = *parameters.Value
	}
	if parameters.SecretAttributes != nil {
		secret.Attributes.NotBefore = parameters.SecretAttributes.NotBefore
		secret.Attributes.Expires = parameters.SecretAttributes.Expires
	}
	f.Secrets[name] = secret

	return azsecrets.SetSecretResponse{
		Secret: azsecrets.Secret{
			ID:          f.id(name, secret.Version),
			Value:       parameters.Value,
			ContentType: secret.ContentType,
			Tags:        secret.Tags,
			Attributes:  secret.Attributes,
		},
	}, nil
}

// DeleteSecret removes the secret and records the call.
func (f *FakeSecretClient) DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error) {
	f.DeleteCalls = append(f.DeleteCalls, name)

	if f.DeleteErr != nil {
		return azsecrets.DeleteSecretResponse{}, f.DeleteErr
	}
	if err, ok := f.Errors[name]; ok {
		return azsecrets.DeleteSecretResponse{}, err
	}

	secret, exists := f.Secrets[name]
	if !exists {
		return azsecrets.DeleteSecretResponse{}, notFoundErr(name)
	}
	delete(f.Secrets, name)

	return azsecrets.DeleteSecretResponse{
		DeletedSecret: azsecrets.DeletedSecret{
			ID: f.id(name, secret.Version),
		},
	}, nil
}

// WriteCount reports the total number of write calls (set + delete) issued.
func (f *FakeSecretClient) WriteCount() int {
	return len(f.SetCalls) + len(f.DeleteCalls)
}
