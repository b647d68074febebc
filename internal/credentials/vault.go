package credentials

import (
	"context"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig locates the registrar secret in a KV v2 mount.
type VaultConfig struct {
	Addr       string
	Token      string
	Mount      string
	SecretPath string
}

// Vault reads {username, api_token} from a KV v2 secret.
type Vault struct {
	kv   *vault.KVv2
	path string
}

func NewVault(cfg VaultConfig) (*Vault, error) {
	vcfg := vault.DefaultConfig()
	if cfg.Addr != "" {
		vcfg.Address = cfg.Addr
	}
	client, err := vault.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}
	return &Vault{kv: client.KVv2(mount), path: cfg.SecretPath}, nil
}

func (v *Vault) Credentials(ctx context.Context) (Credentials, error) {
	secret, err := v.kv.Get(ctx, v.path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return Credentials{}, &Error{Path: v.path, Err: ErrNotFound}
		}
		return Credentials{}, &Error{Path: v.path, Err: err}
	}
	creds := Credentials{
		Username: stringField(secret.Data, "username"),
		APIToken: stringField(secret.Data, "api_token", "token"),
	}
	if creds.APIToken == "" {
		return Credentials{}, &Error{Path: v.path, Err: ErrIncomplete}
	}
	return creds, nil
}

func stringField(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := data[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
