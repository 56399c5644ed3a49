package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	secretService   = "clipfeed"
	apiTokenAccount = "api_token"
	apiTokenEnv     = "CLIPFEED_API_TOKEN"
)

// ErrSecretNotFound is returned by SecretStore.Get for an absent secret.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore reads and writes secrets outside the plain config file.
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// fileSecrets keeps secrets in a 0600 JSON file under the data dir,
// nested as service -> account -> value.
type fileSecrets struct {
	path string
}

// NewSecretStore returns the file-backed secret store at
// $XDG_DATA_HOME/clipfeed/secrets.json.
func NewSecretStore() SecretStore {
	return fileSecrets{path: filepath.Join(defaultDataDir(), "secrets.json")}
}

func (f fileSecrets) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	if secrets == nil {
		secrets = map[string]map[string]string{}
	}
	return secrets, nil
}

func (f fileSecrets) Get(service, account string) (string, error) {
	secrets, err := f.read()
	if err != nil {
		return "", err
	}
	val, ok := secrets[service][account]
	if !ok || val == "" {
		return "", fmt.Errorf("%w: %s/%s", ErrSecretNotFound, service, account)
	}
	return val, nil
}

func (f fileSecrets) Set(service, account, value string) error {
	secrets, err := f.read()
	if err != nil {
		return err
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}

// GetAPIToken returns the bearer token guarding the HTTP API.
// CLIPFEED_API_TOKEN wins; otherwise the stored token is used, and a new
// random one is generated and persisted when none exists yet.
func GetAPIToken(s SecretStore) (string, error) {
	if tok := strings.TrimSpace(os.Getenv(apiTokenEnv)); tok != "" {
		return tok, nil
	}
	tok, err := s.Get(secretService, apiTokenAccount)
	if err == nil {
		return strings.TrimSpace(tok), nil
	}
	if !errors.Is(err, ErrSecretNotFound) {
		return "", fmt.Errorf("loading API token: %w", err)
	}

	tok = uuid.New().String()
	if err := s.Set(secretService, apiTokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing generated API token: %w", err)
	}
	return tok, nil
}

// RotateAPIToken replaces the stored token with a fresh one.
func RotateAPIToken(s SecretStore) (string, error) {
	tok := uuid.New().String()
	if err := s.Set(secretService, apiTokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing rotated API token: %w", err)
	}
	return tok, nil
}
