// Package secrets holds credentials that can be rotated without a restart.
// The service reloads the vault on SIGHUP.
package secrets

import (
	"fmt"
	"sync"
)

// Keys stored in the vault.
const (
	KeyApproverHash = "approver_key_hash"
	KeyLLMAPIKey    = "llm_api_key"
	KeyMCPAPIKey    = "mcp_api_key"
)

// Loader retrieves secrets from a source (config file, env vars, remote vault).
type Loader func() (map[string]string, error)

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{
		values: vals,
		loader: loader,
	}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Getter returns a func that reads key on every call, for consumers that
// must see rotated values.
func (v *Vault) Getter(key string) func() string {
	return func() string { return v.Get(key) }
}

// Redacted returns a loggable form of the secret: the first two characters
// followed by "****", or "****" for short values. Missing keys return "".
func (v *Vault) Redacted(key string) string {
	s := v.Get(key)
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + "****"
	}
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	v.mu.Unlock()
	return nil
}
